// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"fmt"

	"github.com/binaek/cling"
)

func addValidateCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("validate", validateCmd).
			WithFlag(cling.
				NewStringCmdInput("config-location").
				WithDefault(".").
				WithDescription("PDP configuration directory to load").
				AsFlag(),
			),
	)
}

type validateCmdArgs struct {
	ConfigLocation string `cling-name:"config-location"`
}

func validateCmd(ctx context.Context, args []string) error {
	input := validateCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	_, _, err := buildPDP(ctx, input.ConfigLocation)
	if err != nil {
		return err
	}
	fmt.Println("configuration is valid")
	return nil
}
