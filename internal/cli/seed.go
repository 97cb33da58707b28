package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/garyjia/delegate-desk/internal/container"
	"github.com/garyjia/delegate-desk/internal/domain/entity"
	"github.com/garyjia/delegate-desk/internal/domain/workflow"
	"github.com/garyjia/delegate-desk/pkg/utils"
)

// SeedFile is the YAML layout read by seed-staff
type SeedFile struct {
	Staff []struct {
		ID         int64  `yaml:"id"`
		Name       string `yaml:"name"`
		Role       string `yaml:"role"`
		LarkOpenID string `yaml:"lark_open_id"`
	} `yaml:"staff"`
	Delegates []struct {
		ID     int64  `yaml:"id"`
		Name   string `yaml:"name"`
		Kind   string `yaml:"kind"`
		Active *bool  `yaml:"active"`
	} `yaml:"delegates"`
}

// ParseSeed decodes and validates a seed file into directory entries
func ParseSeed(data []byte) ([]*entity.Staff, []*entity.Delegate, error) {
	var file SeedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	staff := make([]*entity.Staff, 0, len(file.Staff))
	for i, s := range file.Staff {
		member := &entity.Staff{
			ID:         s.ID,
			Name:       utils.SanitizeString(s.Name),
			Role:       workflow.Role(s.Role),
			LarkOpenID: s.LarkOpenID,
		}
		if member.Name == "" {
			return nil, nil, fmt.Errorf("staff[%d]: name is required", i)
		}
		if !member.Role.IsValid() {
			return nil, nil, fmt.Errorf("staff[%d] %s: unknown role %q", i, member.Name, s.Role)
		}
		if member.LarkOpenID != "" {
			if err := utils.ValidateOpenID(member.LarkOpenID); err != nil {
				return nil, nil, fmt.Errorf("staff[%d] %s: %w", i, member.Name, err)
			}
		}
		staff = append(staff, member)
	}

	delegates := make([]*entity.Delegate, 0, len(file.Delegates))
	for i, d := range file.Delegates {
		delegate := &entity.Delegate{
			ID:     d.ID,
			Name:   utils.SanitizeString(d.Name),
			Kind:   entity.DelegateKind(d.Kind),
			Active: d.Active == nil || *d.Active,
		}
		if delegate.Name == "" {
			return nil, nil, fmt.Errorf("delegates[%d]: name is required", i)
		}
		if delegate.Kind != entity.DelegateKindKafala && delegate.Kind != entity.DelegateKindAjir {
			return nil, nil, fmt.Errorf("delegates[%d] %s: kind must be Kafala or Ajir", i, delegate.Name)
		}
		delegates = append(delegates, delegate)
	}

	return staff, delegates, nil
}

func seedStaffCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-staff [file.yaml]",
		Short: "Create or update staff and delegates from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			staff, delegates, err := ParseSeed(data)
			if err != nil {
				return err
			}

			return opts.withContainer(cmd.Context(), func(ctx context.Context, c *container.Container) error {
				repos := c.Repositories()
				for _, member := range staff {
					if err := repos.Staff.Upsert(ctx, member); err != nil {
						return err
					}
				}
				for _, delegate := range delegates {
					if err := repos.Delegates.Upsert(ctx, delegate); err != nil {
						return err
					}
				}
				c.Services().Directory.Invalidate()

				fmt.Fprintf(cmd.OutOrStdout(), "%s seeded %d staff and %d delegate(s)\n",
					color.New(color.FgGreen).Sprint("OK"), len(staff), len(delegates))
				return nil
			})
		},
	}
}
