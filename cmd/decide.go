// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/binaek/cling"

	"github.com/sentrie-sh/saplpdp/compiler"
	"github.com/sentrie-sh/saplpdp/httpapi"
)

func addDecideCmd(cli *cling.CLI) {
	cli.WithCommand(
		cling.NewCommand("decide", decideCmd).
			WithFlag(cling.
				NewStringCmdInput("config-location").
				WithDefault("./").
				WithDescription("PDP configuration directory to load").
				AsFlag(),
			).
			WithFlag(cling.
				NewStringCmdInput("subscription").
				WithDefault("{}").
				WithDescription("Authorization subscription, as JSON").
				AsFlag(),
			),
	)
}

type decideCmdArgs struct {
	ConfigLocation string `cling-name:"config-location"`
	Subscription   string `cling-name:"subscription"`
}

func decideCmd(ctx context.Context, args []string) error {
	input := decideCmdArgs{}
	if err := cling.Hydrate(ctx, args, &input); err != nil {
		return err
	}

	instance, _, err := buildPDP(ctx, input.ConfigLocation)
	if err != nil {
		return err
	}

	var sub httpapi.AuthorizationSubscription
	if err := json.Unmarshal([]byte(input.Subscription), &sub); err != nil {
		return err
	}

	decision := instance.Decide(compiler.NewEvaluationContext(sub.ToValue()))
	fmt.Println(decision.Decision.String())
	return nil
}
