package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/council-portal/internal/application"
)

// seedFile is the YAML document accepted by -seed.
type seedFile struct {
	Members []seedMember `yaml:"members"`
}

type seedMember struct {
	Name     string `yaml:"nom"`
	Email    string `yaml:"email"`
	Function string `yaml:"fonction"`
	Role     string `yaml:"role"`
	Password string `yaml:"password"`
}

// seedPrincipal stands for the operator running the seed command. It matches
// no stored member.
var seedPrincipal = application.Principal{MemberID: math.MaxUint32, Role: application.RoleAdmin}

type memberCreator interface {
	CreateMember(ctx context.Context, params application.CreateMemberParams) (application.Member, error)
}

type seedReport struct {
	Created int
	Skipped int
}

func loadSeedFile(path string) (seedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return seedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return file, nil
}

// seedMembers creates every listed member whose email is not taken yet.
// Validation failures abort the run.
func seedMembers(ctx context.Context, members memberCreator, file seedFile, logger *slog.Logger) (seedReport, error) {
	var report seedReport
	for i, m := range file.Members {
		created, err := members.CreateMember(ctx, application.CreateMemberParams{
			Principal: seedPrincipal,
			Input: application.MemberInput{
				Name:     m.Name,
				Email:    m.Email,
				Function: m.Function,
				Role:     application.Role(m.Role),
				Password: m.Password,
			},
		})
		switch {
		case errors.Is(err, application.ErrConflict):
			logger.Info("seed member already exists", "email", m.Email)
			report.Skipped++
		case err != nil:
			return report, fmt.Errorf("seed member %d (%s): %w", i+1, m.Email, err)
		default:
			logger.Info("seed member created", "member_id", created.ID, "email", created.Email, "role", created.Role)
			report.Created++
		}
	}
	return report, nil
}
