package main

import (
	"github.com/spf13/cobra"

	"petrovisor/internal/config"
	"petrovisor/internal/format"
)

func newProfilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List the profiles of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			file, err := config.LoadFromPath(path)
			if err != nil {
				return err
			}
			rows := make(map[string]string, len(file.Profiles))
			for _, name := range file.Names() {
				p := file.Profiles[name]
				rows[name] = p.Workspace
			}
			return a.print(cmd, rows, func(m format.Mode) string {
				return format.RenderMap("Profile", "Workspace", rows, m)
			})
		},
	}
}
