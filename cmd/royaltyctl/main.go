// Command royaltyctl inspects and initialises a royalty ledger on disk.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bitfsorg/libroyalty-go/config"
	"github.com/bitfsorg/libroyalty-go/identity"
	"github.com/bitfsorg/libroyalty-go/ledger"
	"github.com/bitfsorg/libroyalty-go/logger"
	"github.com/bitfsorg/libroyalty-go/oracle"
	"github.com/bitfsorg/libroyalty-go/store"
)

// mnemonicEnv names the variable holding the oracle key mnemonic for report.
const mnemonicEnv = "ROYALTY_ORACLE_MNEMONIC"

const usage = `usage: royaltyctl [-config path] [-datadir dir] <command> [args]

commands:
  keygen                          generate a mnemonic and print owner/oracle principals
  init                            create the ledger with the configured owner and oracle
  info <token>                    show a token, its pool, listing and streaming data
  balance <token> <holder>        show a holder's shares, claimable royalties and funds
  history <token>                 list a token's events (0 for all)
  report <token> <rps> <count> <seq>
                                  sign and submit an oracle report ($` + mnemonicEnv + `)
  audit                           check invariants and print the state digest
`

// commands lists every verb run accepts.
var commands = map[string]bool{
	"keygen": true, "init": true, "info": true, "balance": true,
	"history": true, "report": true, "audit": true,
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "royaltyctl:", err)
		os.Exit(1)
	}
}

// run executes one command and writes its output to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("royaltyctl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFile := fs.String("config", "", "path to config.yaml (default <datadir>/config.yaml)")
	dataDir := fs.String("datadir", "", "data directory override")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if fs.NArg() == 0 {
		return errors.New(usage)
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]
	if !commands[cmd] {
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	cfg, path, err := loadConfig(*configFile, *dataDir)
	if err != nil {
		return err
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return err
	}
	network, err := identity.GetNetwork(cfg.Network)
	if err != nil {
		return err
	}

	if err := logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		Level:     cfg.LogLevel,
		LogFile:   cfg.LogFile,
		SentryDSN: cfg.SentryDSN,
		Tags:      map[string]string{"service": "royaltyctl"},
	}); err != nil {
		return err
	}
	defer logger.Flush(2 * time.Second)

	switch cmd {
	case "keygen":
		return keygen(network, out)
	case "init":
		return initLedger(ctx, cfg, path, out)
	}

	l, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	switch cmd {
	case "info":
		ids, err := parseUints(rest, 1)
		if err != nil {
			return err
		}
		return info(l, ids[0], out)
	case "balance":
		if len(rest) != 2 {
			return fmt.Errorf("balance needs <token> <holder>\n%s", usage)
		}
		ids, err := parseUints(rest[:1], 1)
		if err != nil {
			return err
		}
		return balance(l, ids[0], ledger.Principal(rest[1]), out)
	case "history":
		ids, err := parseUints(rest, 1)
		if err != nil {
			return err
		}
		return history(ctx, l, ids[0], out)
	case "report":
		v, err := parseUints(rest, 4)
		if err != nil {
			return err
		}
		return report(ctx, l, network, oracle.Report{
			TokenID:          v[0],
			RevenuePerStream: v[1],
			StreamCount:      v[2],
			Sequence:         v[3],
			Timestamp:        time.Now().Unix(),
		}, out)
	default:
		return audit(l, out)
	}
}

// loadConfig reads the config file if present and falls back to defaults
// plus environment otherwise. It returns the path the config lives at.
func loadConfig(configFile, dataDir string) (config.Config, string, error) {
	path := configFile
	if path == "" {
		dir := dataDir
		if dir == "" {
			dir = config.DefaultDataDir()
		}
		path = config.ConfigPath(dir)
	}

	cfg, err := config.LoadConfig(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg, err = config.LoadEnvConfig()
	}
	if err != nil {
		return config.Config{}, "", err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, path, nil
}

func openLedger(ctx context.Context, cfg config.Config) (*ledger.Ledger, error) {
	st, err := store.OpenBoltStore(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, st, ledger.WithLogger(logger.Named("ledger")))
	if err != nil {
		st.Close()
		return nil, err
	}
	return l, nil
}

func keygen(network *identity.Network, out io.Writer) error {
	mnemonic, err := identity.GenerateMnemonic()
	if err != nil {
		return err
	}
	seed, err := identity.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return err
	}
	ring, err := identity.NewKeyring(seed, network)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "mnemonic: %s\n", mnemonic)
	for _, role := range []identity.Role{identity.RoleOwner, identity.RoleOracle} {
		kp, err := ring.Derive(role, 0)
		if err != nil {
			return err
		}
		p, err := kp.Principal(network)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-7s %s  key %x  %s\n", role.String()+":", p, identity.KeyID(kp.PublicKey), kp.Path)
	}
	return nil
}

func initLedger(ctx context.Context, cfg config.Config, path string, out io.Writer) error {
	if cfg.Owner == "" {
		return errors.New("init: owner is not configured (set owner in config or ROYALTY_OWNER)")
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	st, err := store.OpenBoltStore(cfg.DBPath())
	if err != nil {
		return err
	}
	l, err := ledger.Init(ctx, st, ledger.Genesis{
		Owner:  ledger.Principal(cfg.Owner),
		Oracle: ledger.Principal(cfg.Oracle),
	}, ledger.WithLogger(logger.Named("ledger")))
	if err != nil {
		st.Close()
		return err
	}
	defer l.Close()

	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	logger.Info("ledger initialised", zap.String("db", cfg.DBPath()), zap.String("config", path))
	fmt.Fprintf(out, "initialised %s\nowner:  %s\noracle: %s\n", cfg.DBPath(), l.Owner(), l.OracleAddress())
	return nil
}

func info(l *ledger.Ledger, id uint64, out io.Writer) error {
	t, err := l.GetTokenInfo(id)
	if err != nil {
		return err
	}
	pool, err := l.GetPool(id)
	if err != nil {
		return err
	}
	sale, err := l.GetNFTSaleStatus(id)
	if err != nil {
		return err
	}
	streams, err := l.GetStreamingData(id)
	if err != nil {
		return err
	}
	holders, err := l.Holders(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "token %d %q by %s\n", t.ID, t.Title, t.Artist)
	fmt.Fprintf(out, "  shares:    %d across %d holders\n", t.TotalShares, len(holders))
	fmt.Fprintf(out, "  royalty:   %d%%\n", t.RoyaltyPercentage)
	fmt.Fprintf(out, "  metadata:  %s\n", t.MetadataURI)
	fmt.Fprintf(out, "  pool:      distributed %d, claimed %d, unclaimed %d\n", pool.TotalDistributed, pool.TotalClaimed, pool.Unclaimed())
	if sale.IsForSale {
		fmt.Fprintf(out, "  listing:   %d by %s\n", sale.Price, sale.Seller)
	} else {
		fmt.Fprintln(out, "  listing:   not for sale")
	}
	fmt.Fprintf(out, "  streams:   %d at %d per stream\n", streams.StreamCount, streams.RevenuePerStream)
	return nil
}

func balance(l *ledger.Ledger, id uint64, holder ledger.Principal, out io.Writer) error {
	shares, err := l.GetShareBalance(id, holder)
	if err != nil {
		return err
	}
	claimable, err := l.GetClaimable(id, holder)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s on token %d: %d shares, %d claimable, %d funds\n", holder, id, shares, claimable, l.GetFunds(holder))
	return nil
}

func history(ctx context.Context, l *ledger.Ledger, id uint64, out io.Writer) error {
	events, err := l.History(ctx, id)
	if err != nil {
		return err
	}
	for _, e := range events {
		fmt.Fprintf(out, "%6d %s %-18s token=%d actor=%s counterparty=%s amount=%d\n",
			e.Seq, e.Time.Format(time.RFC3339), e.Kind, e.TokenID, e.Actor, e.Counterparty, e.Amount)
	}
	return nil
}

func report(ctx context.Context, l *ledger.Ledger, network *identity.Network, r oracle.Report, out io.Writer) error {
	mnemonic := os.Getenv(mnemonicEnv)
	if mnemonic == "" {
		return fmt.Errorf("report: %s is not set", mnemonicEnv)
	}
	seed, err := identity.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		return err
	}
	ring, err := identity.NewKeyring(seed, network)
	if err != nil {
		return err
	}
	kp, err := ring.Derive(identity.RoleOracle, 0)
	if err != nil {
		return err
	}

	signed, err := oracle.Sign(r, kp)
	if err != nil {
		return err
	}
	gw := oracle.NewGateway(l, network, oracle.WithLogger(logger.Named("oracle")))
	if err := gw.Submit(ctx, signed); err != nil {
		return err
	}
	seq, err := gw.LastSequence(r.TokenID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "report %d applied to token %d (last sequence %d)\n", r.Sequence, r.TokenID, seq)
	return nil
}

func audit(l *ledger.Ledger, out io.Writer) error {
	digest := l.StateDigest()
	if err := l.Audit(); err != nil {
		fmt.Fprintf(out, "digest %s\n", hex.EncodeToString(digest[:]))
		return err
	}
	fmt.Fprintf(out, "ok: %d tokens, digest %s\n", l.LastTokenID(), hex.EncodeToString(digest[:]))
	return nil
}

func parseUints(args []string, n int) ([]uint64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d arguments, got %d\n%s", n, len(args), usage)
	}
	out := make([]uint64, n)
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}
