// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// GetBot returns the provider view of a bot, including its status history,
// recordings and participant list.
func (c *Client) GetBot(ctx context.Context, externalID string) (*models.BotInfo, error) {
	if externalID == "" {
		return nil, domain.NewValidationError("bot external id is required")
	}

	path := fmt.Sprintf("/bot/%s/", url.PathEscape(externalID))
	body, err := c.doRequest(ctx, c.httpClient, http.MethodGet, c.config.BaseURL+path, path, nil)
	if err != nil {
		return nil, domain.NewProviderError(fmt.Sprintf("failed to get bot %s", externalID), err)
	}

	payload, err := decodeBody(body)
	if err != nil {
		return nil, domain.NewProviderError(fmt.Sprintf("failed to decode bot %s", externalID), err)
	}
	info, err := normalizeBot(ctx, payload)
	if err != nil {
		return nil, domain.NewProviderError(fmt.Sprintf("failed to decode bot %s", externalID), err)
	}
	if info.ID == "" {
		info.ID = externalID
	}
	return info, nil
}
