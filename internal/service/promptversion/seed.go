package promptversion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/choishiam0906/govhelper/internal/domain"
	"github.com/choishiam0906/govhelper/internal/platform/logger"
	"github.com/choishiam0906/govhelper/internal/prompts"
	"github.com/choishiam0906/govhelper/internal/store"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML document read by Seed.
//
//	versions:
//	  - type: matching_analysis
//	    version: v2
//	    weight: 30
//	    active: true
//	    description: shorter reasoning section
//	    content: |
//	      ...
type SeedFile struct {
	Versions []SeedVersion `yaml:"versions"`
}

// SeedVersion is one entry of a SeedFile. Weight defaults to 100.
type SeedVersion struct {
	Type        domain.PromptType `yaml:"type"`
	Version     string            `yaml:"version"`
	Content     string            `yaml:"content"`
	Description string            `yaml:"description"`
	Weight      *int              `yaml:"weight"`
	Active      bool              `yaml:"active"`
}

// SeedResult counts what a seed run did.
type SeedResult struct {
	Created int
	Skipped int
}

// BuiltinVersion is the label seeded for compiled-in templates.
const BuiltinVersion = "v1"

// ParseSeedFile decodes a seed document.
func ParseSeedFile(r io.Reader) (*SeedFile, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode prompt seed file: %w", err)
	}
	return &f, nil
}

// Seed creates every version of f. Versions whose type and label already
// exist are skipped, so seeding is repeatable.
func (m *Manager) Seed(ctx context.Context, f *SeedFile) (SeedResult, error) {
	var result SeedResult
	log := logger.FromContextOrDefault(ctx, m.logger)

	for i, sv := range f.Versions {
		v := &domain.PromptVersion{
			ID:          uuid.New(),
			Type:        sv.Type,
			Version:     sv.Version,
			Content:     sv.Content,
			IsActive:    sv.Active,
			Weight:      domain.DefaultPromptWeight,
			Description: sv.Description,
		}
		if sv.Weight != nil {
			v.Weight = *sv.Weight
		}
		v.CreatedAt = time.Now().UTC()
		if err := v.Validate(); err != nil {
			return result, fmt.Errorf("seed entry %d (%s/%s): %w", i, sv.Type, sv.Version, err)
		}

		err := m.versions.Create(ctx, v)
		switch {
		case errors.Is(err, store.ErrPromptVersionExists):
			result.Skipped++
			log.Debug("prompt version already seeded",
				slog.String("prompt_type", string(v.Type)),
				slog.String("version", v.Version))
		case err != nil:
			return result, fmt.Errorf("seed entry %d (%s/%s): %w", i, sv.Type, sv.Version, err)
		default:
			result.Created++
		}
	}

	log.Info("prompt versions seeded",
		slog.Int("created", result.Created),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

// BuiltinSeedFile describes the compiled-in templates as active v1 versions
// with full weight.
func BuiltinSeedFile() *SeedFile {
	f := &SeedFile{}
	for _, t := range domain.PromptTypes {
		tmpl, ok := prompts.Builtin(t)
		if !ok {
			continue
		}
		f.Versions = append(f.Versions, SeedVersion{
			Type:        t,
			Version:     BuiltinVersion,
			Content:     tmpl.Source,
			Description: "built-in template",
			Active:      true,
		})
	}
	return f
}
