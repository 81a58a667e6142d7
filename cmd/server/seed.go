package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

type subjectsYAML struct {
	Subjects []domain.Subject `yaml:"subjects"`
}

// loadSeedSubjects reads a subject catalogue. Department codes are upper-cased.
func loadSeedSubjects(path string) ([]domain.Subject, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("seed file not found: %s", path)
		}
		return nil, err
	}
	var doc subjectsYAML
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("yaml parse: %w", err)
	}
	out := make([]domain.Subject, 0, len(doc.Subjects))
	for i, s := range doc.Subjects {
		s.ID = strings.TrimSpace(s.ID)
		s.Name = strings.TrimSpace(s.Name)
		s.StaffName = strings.TrimSpace(s.StaffName)
		s.Department = domain.Department(strings.ToUpper(strings.TrimSpace(string(s.Department))))
		switch {
		case s.Name == "" || s.StaffName == "":
			return nil, fmt.Errorf("subject #%d: name and staff_name required", i+1)
		case !s.Department.Valid():
			return nil, fmt.Errorf("subject #%d: unknown department %q", i+1, s.Department)
		case s.Year < 1 || s.Year > 4 || s.Semester < 1 || s.Semester > 8:
			return nil, fmt.Errorf("subject #%d: year or semester out of range", i+1)
		}
		out = append(out, s)
	}
	return out, nil
}

// seedSubjects creates the catalogue; subjects whose ID already exists are skipped.
func seedSubjects(ctx domain.Context, repo domain.SubjectRepository, subjects []domain.Subject) (int, error) {
	added := 0
	for _, s := range subjects {
		if _, err := repo.Create(ctx, s); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return added, fmt.Errorf("seed subject %s: %w", s.ID, err)
		}
		added++
	}
	slog.Info("subjects seeded", slog.Int("added", added), slog.Int("skipped", len(subjects)-added))
	return added, nil
}
