// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"fmt"

	"github.com/binaek/cling"

	"github.com/sentrie-sh/saplpdp/constants"
	ver "github.com/sentrie-sh/saplpdp/version"
)

func addVersionCmd(cli *cling.CLI) {
	cli.WithCommand(cling.NewCommand("version", versionCmd))
}

func versionCmd(ctx context.Context, args []string) error {
	info := ver.GetVersionInfo(
		ver.WithAppDetails(constants.APPNAME, "SAPL-style policy decision point", "https://github.com/sentrie-sh/saplpdp"),
	)
	info.GitVersion = constants.APPVERSION
	fmt.Print(info.String())
	return nil
}
