package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/goliatone/go-credentials-store/core"
)

type resolveStoreCmd struct {
	ID string `arg:"" help:"provider::resolver::token identifying the store."`
}

func (c *resolveStoreCmd) Run(cli *cliContext) error {
	store, err := resolveStore(context.Background(), cli.providers, cli.resolvers, c.ID)
	if err != nil {
		return err
	}
	fmt.Printf("resolved store with %d domain(s)\n", len(store.Domains()))
	return nil
}

type cli struct {
	ResolveStore resolveStoreCmd `cmd:"" name:"resolve-store" help:"Resolve a store instance from provider::resolver::token."`
}

// cliContext carries the registries every subcommand resolves against. A
// real deployment builds these from its configured providers and context
// resolvers; credstore wires an empty pair, so resolve-store reports
// "no such provider" for every well-formed id until a host registers its own.
type cliContext struct {
	providers *core.ProviderRegistry
	resolvers *core.ContextResolverRegistry
}

func main() {
	var c cli
	parser := kong.Must(&c, kong.Name("credstore"), kong.Description("Inspect and resolve credential stores."))
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		parser.FatalIfErrorf(err)
		return
	}

	appCtx := &cliContext{
		providers: core.NewProviderRegistry(),
		resolvers: core.NewContextResolverRegistry(),
	}
	if err := kctx.Run(appCtx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
