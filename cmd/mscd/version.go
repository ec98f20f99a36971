package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/smartbch/watchtower/app"
)

func VersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(app.ClientID)
			fmt.Println("Version:", app.GitTag)
			if app.GitCommit != "" {
				fmt.Println("Git Commit:", app.GitCommit)
			}
			if app.GitDate != "" {
				fmt.Println("Git Commit Date:", app.GitDate)
			}
			fmt.Println("Architecture:", runtime.GOARCH)
			fmt.Println("Go Version:", runtime.Version())
			fmt.Println("Operating System:", runtime.GOOS)
			return nil
		},
	}
}
