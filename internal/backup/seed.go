package backup

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/edvin/backupd/internal/model"
)

// seedConfig is the YAML shape of a schedule seed file.
type seedConfig struct {
	Schedules []scheduleDef `yaml:"schedules"`
}

type scheduleDef struct {
	Name             string `yaml:"name"`
	Kind             string `yaml:"kind"`
	Cron             string `yaml:"cron"`
	Enabled          bool   `yaml:"enabled"`
	RetentionDays    int    `yaml:"retention_days"`
	Compress         bool   `yaml:"compress"`
	Encrypt          bool   `yaml:"encrypt"`
	NotifyOnComplete bool   `yaml:"notify_on_complete"`
	NotifyOnFailure  bool   `yaml:"notify_on_failure"`
}

// SeedSchedules loads schedule definitions from a YAML file and
// creates the ones whose name is not registered yet. Existing
// schedules are left alone, so re-running at every startup is safe.
func (e *Engine) SeedSchedules(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var cfg seedConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	existing, err := e.schedules.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list schedules: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for i := range existing {
		known[existing[i].Name] = true
	}

	created := 0
	for _, def := range cfg.Schedules {
		if known[def.Name] {
			continue
		}
		kind, err := model.ParseBackupKind(def.Kind)
		if err != nil {
			return created, fmt.Errorf("seed schedule %q: %w", def.Name, err)
		}
		if _, err := e.CreateSchedule(ctx, ScheduleInput{
			Name:             def.Name,
			Kind:             kind,
			CronExpression:   def.Cron,
			Enabled:          def.Enabled,
			RetentionDays:    def.RetentionDays,
			Compress:         def.Compress,
			Encrypt:          def.Encrypt,
			NotifyOnComplete: def.NotifyOnComplete,
			NotifyOnFailure:  def.NotifyOnFailure,
		}); err != nil {
			return created, fmt.Errorf("seed schedule %q: %w", def.Name, err)
		}
		created++
	}

	e.logger.Info().Int("created", created).Str("path", path).Msg("schedules seeded")
	return created, nil
}
