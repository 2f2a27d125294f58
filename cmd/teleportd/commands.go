package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/teleport-bridge/teleportd/internal/config"
	"github.com/teleport-bridge/teleportd/internal/core/application"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/urfave/cli/v2"
)

const (
	minFlagName           = "min"
	thresholdFlagName     = "threshold"
	chainIdFlagName       = "id"
	chainNameFlagName     = "name"
	shortNameFlagName     = "short-name"
	netIdFlagName         = "net-id"
	bridgeFlagName        = "bridge-contract"
	tokenFlagName         = "token-contract"
	firstIndexFlagName    = "first-index"
	accountFlagName       = "account"
	fixedFeeFlagName      = "fixed"
	feeRatioFlagName      = "ratio"
	uptoFlagName          = "upto"
	teleportIdFlagName    = "id"
	freezeInFlagName      = "in"
	freezeOutFlagName     = "out"
	freezeCancelFlagName  = "cancel"
	freezeOraclesFlagName = "oracles"
)

var (
	minFlag = &cli.StringFlag{
		Name:     minFlagName,
		Usage:    "minimum transfer amount, e.g. '100.0000 TLOS'",
		Required: true,
	}
	thresholdFlag = &cli.UintFlag{
		Name:     thresholdFlagName,
		Usage:    "number of oracle confirmations required",
		Required: true,
	}
	accountFlag = &cli.StringFlag{
		Name:     accountFlagName,
		Usage:    "ledger account",
		Required: true,
	}
	uptoFlag = &cli.Uint64Flag{
		Name:     uptoFlagName,
		Usage:    "highest id to delete, the row must exist",
		Required: true,
	}
)

// withLedger loads the config and hands the in-process state machine to fn.
// The store is opened directly, so the daemon must not hold it meanwhile.
func withLedger(
	c *cli.Context,
	fn func(ctx context.Context, cfg *config.Config, svc *application.LedgerService) error,
) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %s", err)
	}
	svc, err := cfg.LedgerService()
	if err != nil {
		return err
	}
	defer func() {
		// nolint:all
		cfg.RepoManager().Close()
	}()
	return fn(c.Context, cfg, svc)
}

func requireOwner(cfg *config.Config) error {
	if cfg.Owner == "" {
		return fmt.Errorf("missing owner account, set --owner or TELEPORTD_OWNER")
	}
	return nil
}

func printJSON(v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

var commands = []*cli.Command{
	initCmd,
	addChainCmd,
	removeChainCmd,
	registerOracleCmd,
	unregisterOracleCmd,
	setFeeCmd,
	setMinCmd,
	setThresholdCmd,
	freezeCmd,
	payOraclesCmd,
	deleteTeleportsCmd,
	deleteReceiptsCmd,
	statsCmd,
	chainsCmd,
	oraclesCmd,
	depositCmd,
	teleportCmd,
}

var initCmd = &cli.Command{
	Name:  "init",
	Usage: "create the ledger configuration singleton",
	Flags: []cli.Flag{minFlag, thresholdFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			symbol, err := domain.ParseSymbol(cfg.TokenSymbol)
			if err != nil {
				return fmt.Errorf("invalid token symbol: %s", err)
			}
			min, err := domain.ParseAsset(c.String(minFlagName))
			if err != nil {
				return fmt.Errorf("invalid minimum transfer: %s", err)
			}
			return svc.Init(
				ctx, cfg.Owner, symbol, min,
				uint8(c.Uint(thresholdFlagName)), domain.FreezeFlags{}, 0,
			)
		})
	},
}

var addChainCmd = &cli.Command{
	Name:  "add-chain",
	Usage: "register a remote chain in the ledger",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: chainIdFlagName, Usage: "bridge chain id", Required: true},
		&cli.StringFlag{Name: chainNameFlagName, Usage: "display name", Required: true},
		&cli.StringFlag{Name: shortNameFlagName, Usage: "short name", Required: true},
		&cli.Uint64Flag{Name: netIdFlagName, Usage: "network id of the remote chain"},
		&cli.StringFlag{Name: bridgeFlagName, Usage: "bridge contract address"},
		&cli.StringFlag{Name: tokenFlagName, Usage: "token contract address"},
		&cli.Uint64Flag{Name: firstIndexFlagName, Usage: "first teleport index to accept"},
	},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.AddChain(ctx, cfg.Owner, domain.Chain{
				ID:             uint8(c.Uint(chainIdFlagName)),
				Name:           c.String(chainNameFlagName),
				ShortName:      c.String(shortNameFlagName),
				NetID:          c.Uint64(netIdFlagName),
				BridgeContract: c.String(bridgeFlagName),
				TokenContract:  c.String(tokenFlagName),
				FirstIndex:     c.Uint64(firstIndexFlagName),
			})
		})
	},
}

var removeChainCmd = &cli.Command{
	Name:  "remove-chain",
	Usage: "remove a chain from the ledger registry",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: chainIdFlagName, Usage: "bridge chain id", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.RemoveChain(ctx, cfg.Owner, uint8(c.Uint(chainIdFlagName)))
		})
	},
}

var registerOracleCmd = &cli.Command{
	Name:  "register-oracle",
	Usage: "add an account to the oracle set",
	Flags: []cli.Flag{accountFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.RegisterOracle(ctx, cfg.Owner, c.String(accountFlagName))
		})
	},
}

var unregisterOracleCmd = &cli.Command{
	Name:  "unregister-oracle",
	Usage: "remove an account from the oracle set",
	Flags: []cli.Flag{accountFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.UnregisterOracle(ctx, cfg.Owner, c.String(accountFlagName))
		})
	},
}

var setFeeCmd = &cli.Command{
	Name:  "set-fee",
	Usage: "update the fixed fee and the variable fee ratio",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name: fixedFeeFlagName, Usage: "fixed fee, e.g. '0.5000 TLOS'", Required: true,
		},
		&cli.StringFlag{
			Name: feeRatioFlagName, Usage: "variable ratio as decimal text, e.g. '0.007'",
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			fixed, err := domain.ParseAsset(c.String(fixedFeeFlagName))
			if err != nil {
				return fmt.Errorf("invalid fixed fee: %s", err)
			}
			return svc.SetFee(ctx, cfg.Owner, fixed, c.String(feeRatioFlagName))
		})
	},
}

var setMinCmd = &cli.Command{
	Name:  "set-min",
	Usage: "update the minimum transfer amount",
	Flags: []cli.Flag{minFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			min, err := domain.ParseAsset(c.String(minFlagName))
			if err != nil {
				return fmt.Errorf("invalid minimum transfer: %s", err)
			}
			return svc.SetMin(ctx, cfg.Owner, min)
		})
	},
}

var setThresholdCmd = &cli.Command{
	Name:  "set-threshold",
	Usage: "update the required oracle confirmation count",
	Flags: []cli.Flag{thresholdFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.SetThreshold(ctx, cfg.Owner, uint8(c.Uint(thresholdFlagName)))
		})
	},
}

var freezeCmd = &cli.Command{
	Name:  "freeze",
	Usage: "replace the freeze flags, unset flags thaw the action",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: freezeInFlagName, Usage: "freeze inbound transfers"},
		&cli.BoolFlag{Name: freezeOutFlagName, Usage: "freeze outbound transfers"},
		&cli.BoolFlag{Name: freezeCancelFlagName, Usage: "freeze cancellations"},
		&cli.BoolFlag{Name: freezeOraclesFlagName, Usage: "freeze the oracle registry"},
	},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.SetFreeze(ctx, cfg.Owner, domain.FreezeFlags{
				In:      c.Bool(freezeInFlagName),
				Out:     c.Bool(freezeOutFlagName),
				Cancel:  c.Bool(freezeCancelFlagName),
				Oracles: c.Bool(freezeOraclesFlagName),
			})
		})
	},
}

var payOraclesCmd = &cli.Command{
	Name:  "pay-oracles",
	Usage: "split the collected fees between the registered oracles",
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			return svc.PayOracles(ctx, cfg.Owner)
		})
	},
}

var deleteTeleportsCmd = &cli.Command{
	Name:  "delete-teleports",
	Usage: "prune claimed teleports up to the given id",
	Flags: []cli.Flag{uptoFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			deleted, err := svc.DeleteTeleports(ctx, cfg.Owner, c.Uint64(uptoFlagName))
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d teleports\n", deleted)
			return nil
		})
	},
}

var deleteReceiptsCmd = &cli.Command{
	Name:  "delete-receipts",
	Usage: "prune completed receipts up to the given id",
	Flags: []cli.Flag{uptoFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			if err := requireOwner(cfg); err != nil {
				return err
			}
			deleted, err := svc.DeleteReceipts(ctx, cfg.Owner, c.Uint64(uptoFlagName))
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d receipts\n", deleted)
			return nil
		})
	},
}

var statsCmd = &cli.Command{
	Name:  "stats",
	Usage: "show the ledger configuration and collected fees",
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			stats, err := svc.GetStats(ctx)
			if err != nil {
				return err
			}
			return printJSON(stats)
		})
	},
}

var chainsCmd = &cli.Command{
	Name:  "chains",
	Usage: "list the registered chains",
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			chains, err := svc.GetChains(ctx)
			if err != nil {
				return err
			}
			return printJSON(chains)
		})
	},
}

var oraclesCmd = &cli.Command{
	Name:  "oracles",
	Usage: "list the registered oracles",
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			oracles, err := svc.GetOracles(ctx)
			if err != nil {
				return err
			}
			return printJSON(oracles)
		})
	},
}

var depositCmd = &cli.Command{
	Name:  "deposit",
	Usage: "show the deposit of an account",
	Flags: []cli.Flag{accountFlag},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			deposit, err := svc.GetDeposit(ctx, c.String(accountFlagName))
			if err != nil {
				return err
			}
			if deposit == nil {
				return fmt.Errorf("no deposit found for account %s", c.String(accountFlagName))
			}
			return printJSON(deposit)
		})
	},
}

var teleportCmd = &cli.Command{
	Name:  "teleport",
	Usage: "show a teleport entry",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: teleportIdFlagName, Usage: "teleport id", Required: true},
	},
	Action: func(c *cli.Context) error {
		return withLedger(c, func(
			ctx context.Context, cfg *config.Config, svc *application.LedgerService,
		) error {
			teleport, err := svc.GetTeleport(ctx, c.Uint64(teleportIdFlagName))
			if err != nil {
				return err
			}
			if teleport == nil {
				return fmt.Errorf("teleport not found")
			}
			return printJSON(teleport)
		})
	},
}
