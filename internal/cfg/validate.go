// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cfg

import "fmt"

func isValidLogRotateConfig(c *LogRotateConfig) error {
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

func isValidSeverity(s string) error {
	var sev Severity
	if err := sev.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	return nil
}

// ValidateConfig returns a non-nil error if the config is invalid.
func ValidateConfig(config *Config) error {
	if err := isValidLogRotateConfig(&config.Logging.LogRotate); err != nil {
		return fmt.Errorf("error parsing log-rotate config: %w", err)
	}

	if err := isValidSeverity(config.Logging.Severity); err != nil {
		return fmt.Errorf("error parsing logging.severity: %w", err)
	}

	if config.Replay.MaxOpsPerSecond < 0 {
		return fmt.Errorf("max-ops-per-sec cannot be negative")
	}

	if config.Replay.SyncIntervalMinutes < 0 {
		return fmt.Errorf("sync-interval-minutes cannot be negative")
	}

	return nil
}
