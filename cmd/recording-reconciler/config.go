// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/infrastructure/provider"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/constants"
)

// environment is the resolved configuration of the reconciler.
type environment struct {
	Port                     string
	Bind                     string
	NATSURL                  string
	DatabasePath             string
	LockPath                 string
	ProviderBaseURL          string
	ProviderAPIKey           string
	ReconcileInterval        time.Duration
	ReconcileWorkers         int
	TranscriptAttemptCeiling int
	ContentRequestTimeout    time.Duration
}

// listenAddr is the HTTP probe address; a bind of "*" listens on every interface.
func (e environment) listenAddr() string {
	if e.Bind == "*" {
		return ":" + e.Port
	}
	return e.Bind + ":" + e.Port
}

// fileConfig is the layout of the optional TOML configuration file.
// Durations are Go duration strings such as "30s".
type fileConfig struct {
	Port                     string `toml:"port"`
	Bind                     string `toml:"bind"`
	NATSURL                  string `toml:"nats_url"`
	DatabasePath             string `toml:"database_path"`
	LockPath                 string `toml:"lock_path"`
	ProviderBaseURL          string `toml:"provider_base_url"`
	ProviderAPIKey           string `toml:"provider_api_key"`
	ReconcileInterval        string `toml:"reconcile_interval"`
	ReconcileWorkers         int    `toml:"reconcile_workers"`
	TranscriptAttemptCeiling int    `toml:"transcript_attempt_ceiling"`
	ContentRequestTimeout    string `toml:"content_request_timeout"`
}

func defaultEnvironment() environment {
	return environment{
		Port:                     "8080",
		Bind:                     "*",
		NATSURL:                  "nats://localhost:4222",
		DatabasePath:             "recordings.db",
		LockPath:                 "recording-reconciler.lock",
		ProviderBaseURL:          provider.BaseURL,
		ReconcileInterval:        constants.DefaultReconcileInterval,
		ReconcileWorkers:         constants.DefaultReconcileWorkers,
		TranscriptAttemptCeiling: constants.DefaultTranscriptAttemptCeiling,
		ContentRequestTimeout:    constants.DefaultContentRequestTimeout,
	}
}

// loadConfig resolves the configuration from the defaults, then the TOML file
// at path when set, then the environment. Environment variables win.
func loadConfig(path string, getenv func(string) string) (environment, error) {
	env := defaultEnvironment()

	if path != "" {
		if err := applyFile(&env, path); err != nil {
			return environment{}, err
		}
	}
	if err := applyEnv(&env, getenv); err != nil {
		return environment{}, err
	}
	if err := env.validate(); err != nil {
		return environment{}, err
	}
	return env, nil
}

func applyFile(env *environment, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&env.Port, fc.Port)
	setString(&env.Bind, fc.Bind)
	setString(&env.NATSURL, fc.NATSURL)
	setString(&env.DatabasePath, fc.DatabasePath)
	setString(&env.LockPath, fc.LockPath)
	setString(&env.ProviderBaseURL, fc.ProviderBaseURL)
	setString(&env.ProviderAPIKey, fc.ProviderAPIKey)
	if fc.ReconcileWorkers != 0 {
		env.ReconcileWorkers = fc.ReconcileWorkers
	}
	if fc.TranscriptAttemptCeiling != 0 {
		env.TranscriptAttemptCeiling = fc.TranscriptAttemptCeiling
	}
	if err := setDuration(&env.ReconcileInterval, "reconcile_interval", fc.ReconcileInterval); err != nil {
		return err
	}
	return setDuration(&env.ContentRequestTimeout, "content_request_timeout", fc.ContentRequestTimeout)
}

func applyEnv(env *environment, getenv func(string) string) error {
	setString(&env.Port, getenv("PORT"))
	setString(&env.Bind, getenv("BIND"))
	setString(&env.NATSURL, getenv("NATS_URL"))
	setString(&env.DatabasePath, getenv("DATABASE_PATH"))
	setString(&env.LockPath, getenv("LOCK_PATH"))
	setString(&env.ProviderBaseURL, getenv("RECORDING_PROVIDER_BASE_URL"))
	setString(&env.ProviderAPIKey, getenv("RECORDING_PROVIDER_API_KEY"))

	if err := setInt(&env.ReconcileWorkers, "RECONCILE_WORKERS", getenv("RECONCILE_WORKERS")); err != nil {
		return err
	}
	if err := setInt(&env.TranscriptAttemptCeiling, "TRANSCRIPT_ATTEMPT_CEILING", getenv("TRANSCRIPT_ATTEMPT_CEILING")); err != nil {
		return err
	}
	if err := setDuration(&env.ReconcileInterval, "RECONCILE_INTERVAL", getenv("RECONCILE_INTERVAL")); err != nil {
		return err
	}
	return setDuration(&env.ContentRequestTimeout, "CONTENT_REQUEST_TIMEOUT", getenv("CONTENT_REQUEST_TIMEOUT"))
}

func (e environment) validate() error {
	var errs []error
	if e.ProviderAPIKey == "" {
		errs = append(errs, errors.New("RECORDING_PROVIDER_API_KEY is required"))
	}
	if _, err := strconv.Atoi(e.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid PORT %q", e.Port))
	}
	if e.NATSURL == "" {
		errs = append(errs, errors.New("NATS_URL must not be empty"))
	}
	if e.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH must not be empty"))
	}
	if e.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("RECONCILE_INTERVAL must be positive"))
	}
	if e.ReconcileWorkers < 1 {
		errs = append(errs, errors.New("RECONCILE_WORKERS must be at least 1"))
	}
	if e.TranscriptAttemptCeiling < 1 {
		errs = append(errs, errors.New("TRANSCRIPT_ATTEMPT_CEILING must be at least 1"))
	}
	if e.ContentRequestTimeout <= 0 {
		errs = append(errs, errors.New("CONTENT_REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setInt(dst *int, name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, name, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	*dst = d
	return nil
}
