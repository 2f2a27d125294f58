package config

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/application"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/db"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/endpoints"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/ledgerclient"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/notifier"
	"github.com/teleport-bridge/teleportd/internal/infrastructure/resourcelender"
	"github.com/teleport-bridge/teleportd/internal/oracle"
	"github.com/urfave/cli/v2"
)

var supportedDbs = supportedType{
	"badger": {},
}

type Config struct {
	Datadir  string
	LogLevel int
	DbType   string
	DbDir    string

	Owner        string
	TokenSymbol  string
	CancelExpiry int64 // seconds

	OracleAccount string
	OracleKey     string
	ChainsFile    string

	TelegramBotToken   string
	TelegramChatID     string
	TelegramCostChatID string

	LenderURL           string
	LenderResources     []string
	LenderMinCapacity   int64
	LenderPayment       string
	LenderDailyCap      string
	LenderCheckInterval int64 // seconds

	Chains []ChainConfig

	symbol    domain.Symbol
	oracleKey *ecdsa.PrivateKey
	repo      ports.RepoManager
	svc       *application.LedgerService
	alerts    ports.Notifier
	cursors   ports.CursorStore
	guard     *oracle.ResourceGuard
}

func (c *Config) String() string {
	clone := *c
	if clone.OracleKey != "" {
		clone.OracleKey = "••••••"
	}
	if clone.TelegramBotToken != "" {
		clone.TelegramBotToken = "••••••"
	}
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = defaultAppDataDir("teleportd")
	defaultLogLevel            = 4
	defaultDbType              = "badger"
	defaultCancelExpiry        = 32 * 24 * 60 * 60 // 32 days
	defaultTokenSymbol         = "4,TLOS"
	defaultLenderResources     = cli.NewStringSlice("cpu", "net")
	defaultLenderMinCapacity   = int64(5000)
	defaultLenderCheckInterval = 600 // 10 minutes
)

func defaultAppDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

// env returns a list of strings prefixed with `TELEPORTD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("TELEPORTD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	Owner = &cli.StringFlag{
		Usage: "Account allowed to run administrative actions",
		Name:  "owner", EnvVars: env("OWNER"),
	}

	TokenSymbol = &cli.StringFlag{
		Usage: "Bridged token symbol in precision,CODE form",
		Name:  "token-symbol", EnvVars: env("TOKEN_SYMBOL"),
		Value: defaultTokenSymbol,
	}

	// TODO: Make this a cli.DurationFlag.
	CancelExpiry = &cli.Int64Flag{
		Usage: "Seconds after which a stuck teleport can be cancelled",
		Name:  "cancel-expiry", EnvVars: env("CANCEL_EXPIRY"),
		Value: int64(defaultCancelExpiry),

		DefaultText: fmt.Sprintf("%d (~%0.f days)", defaultCancelExpiry,
			(time.Duration(defaultCancelExpiry)*time.Second).Hours()/24),
	}

	OracleAccount = &cli.StringFlag{
		Usage: "Ledger account this oracle submits actions under",
		Name:  "oracle-account", EnvVars: env("ORACLE_ACCOUNT"),
	}

	OracleKey = &cli.StringFlag{
		Usage: "Hex-encoded private key used to sign teleport entries, enables the oracle loops",
		Name:  "oracle-prvkey", EnvVars: env("ORACLE_PRVKEY"),
	}

	ChainsFile = &cli.StringFlag{
		Usage: "Path to the YAML file describing the watched chains",
		Name:  "chains-file", EnvVars: env("CHAINS_FILE"),
		DefaultText: "chains.yaml inside datadir",
	}

	TelegramBotToken = &cli.StringFlag{
		Usage: "Telegram bot token for notifications",
		Name:  "telegram-bot-token", EnvVars: env("TELEGRAM_BOT_TOKEN"),
	}

	TelegramChatID = &cli.StringFlag{
		Usage: "Telegram chat for status and error notifications",
		Name:  "telegram-chat-id", EnvVars: env("TELEGRAM_CHAT_ID"),
	}

	TelegramCostChatID = &cli.StringFlag{
		Usage: "Telegram chat for resource cost reports, fallback to the main chat",
		Name:  "telegram-cost-chat-id", EnvVars: env("TELEGRAM_COST_CHAT_ID"),
	}

	LenderURL = &cli.StringFlag{
		Usage: "Resource lender API url, enables the resource guard",
		Name:  "lender-url", EnvVars: env("LENDER_URL"),
	}

	LenderResources = &cli.StringSliceFlag{
		Usage: "Metered resources to keep funded (comma-separated)",
		Name:  "lender-resources", EnvVars: env("LENDER_RESOURCES"),
		Value: defaultLenderResources,
	}

	LenderMinCapacity = &cli.Int64Flag{
		Usage: "Borrow once available capacity drops below this",
		Name:  "lender-min-capacity", EnvVars: env("LENDER_MIN_CAPACITY"),
		Value: defaultLenderMinCapacity,
	}

	LenderPayment = &cli.StringFlag{
		Usage: "Per-borrow payment, e.g. '0.5000 TLOS'",
		Name:  "lender-payment", EnvVars: env("LENDER_PAYMENT"),
	}

	LenderDailyCap = &cli.StringFlag{
		Usage: "Maximum resource spend per calendar day, e.g. '5.0000 TLOS'",
		Name:  "lender-daily-cap", EnvVars: env("LENDER_DAILY_CAP"),
	}

	// TODO: Make this a cli.DurationFlag.
	LenderCheckInterval = &cli.Int64Flag{
		Usage: "Seconds between resource capacity checks",
		Name:  "lender-check-interval", EnvVars: env("LENDER_CHECK_INTERVAL"),
		Value: int64(defaultLenderCheckInterval),
	}
)

var Flags = []cli.Flag{
	Datadir,
	LogLevel,
	DbType,
	Owner,
	TokenSymbol,
	CancelExpiry,
	OracleAccount,
	OracleKey,
	ChainsFile,
	TelegramBotToken,
	TelegramChatID,
	TelegramCostChatID,
	LenderURL,
	LenderResources,
	LenderMinCapacity,
	LenderPayment,
	LenderDailyCap,
	LenderCheckInterval,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	datadir := c.String(Datadir.Name)

	chainsFile := c.String(ChainsFile.Name)
	if chainsFile == "" {
		chainsFile = filepath.Join(datadir, "chains.yaml")
	}

	return &Config{
		Datadir:             datadir,
		LogLevel:            c.Int(LogLevel.Name),
		DbType:              c.String(DbType.Name),
		DbDir:               filepath.Join(datadir, "db"),
		Owner:               c.String(Owner.Name),
		TokenSymbol:         c.String(TokenSymbol.Name),
		CancelExpiry:        c.Int64(CancelExpiry.Name),
		OracleAccount:       c.String(OracleAccount.Name),
		OracleKey:           c.String(OracleKey.Name),
		ChainsFile:          chainsFile,
		TelegramBotToken:    c.String(TelegramBotToken.Name),
		TelegramChatID:      c.String(TelegramChatID.Name),
		TelegramCostChatID:  c.String(TelegramCostChatID.Name),
		LenderURL:           c.String(LenderURL.Name),
		LenderResources:     c.StringSlice(LenderResources.Name),
		LenderMinCapacity:   c.Int64(LenderMinCapacity.Name),
		LenderPayment:       c.String(LenderPayment.Name),
		LenderDailyCap:      c.String(LenderDailyCap.Name),
		LenderCheckInterval: c.Int64(LenderCheckInterval.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if c.Owner == "" {
		return fmt.Errorf("missing owner account")
	}
	if c.CancelExpiry <= 0 {
		return fmt.Errorf("invalid cancel expiry, must be positive")
	}

	symbol, err := domain.ParseSymbol(c.TokenSymbol)
	if err != nil {
		return fmt.Errorf("invalid token symbol: %s", err)
	}
	c.symbol = symbol

	if c.OracleKey != "" {
		if c.OracleAccount == "" {
			return fmt.Errorf("oracle key set but oracle account is missing")
		}
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.OracleKey, "0x"))
		if err != nil {
			return fmt.Errorf("invalid oracle key: %s", err)
		}
		c.oracleKey = key

		chains, err := loadChains(c.ChainsFile)
		if err != nil {
			return err
		}
		c.Chains = chains
	}

	if c.LenderURL != "" {
		if c.OracleAccount == "" {
			return fmt.Errorf("lender url set but oracle account is missing")
		}
		payment, err := domain.ParseAsset(c.LenderPayment)
		if err != nil {
			return fmt.Errorf("invalid lender payment: %s", err)
		}
		dailyCap, err := domain.ParseAsset(c.LenderDailyCap)
		if err != nil {
			return fmt.Errorf("invalid lender daily cap: %s", err)
		}
		if !payment.SameSymbol(dailyCap) {
			return fmt.Errorf("lender payment and daily cap symbols differ")
		}
		if len(c.LenderResources) == 0 {
			return fmt.Errorf("missing lender resources")
		}
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.notifierService(); err != nil {
		return err
	}
	if err := c.cursorStore(); err != nil {
		return err
	}
	if err := c.resourceGuard(); err != nil {
		return err
	}
	return nil
}

// LedgerService returns the bridge state machine, building it on first use.
func (c *Config) LedgerService() (*application.LedgerService, error) {
	if c.svc == nil {
		if c.repo == nil {
			if err := c.repoManager(); err != nil {
				return nil, err
			}
		}
		c.svc = application.NewLedgerService(
			c.repo, c.Owner, time.Duration(c.CancelExpiry)*time.Second,
		)
	}
	return c.svc, nil
}

func (c *Config) RepoManager() ports.RepoManager {
	return c.repo
}

func (c *Config) Notifier() ports.Notifier {
	return c.alerts
}

func (c *Config) ResourceGuard() *oracle.ResourceGuard {
	return c.guard
}

func (c *Config) OracleEnabled() bool {
	return c.oracleKey != nil
}

// ChainWatchers builds one EVM watcher per configured chain.
func (c *Config) ChainWatchers() ([]*oracle.EthWatcher, error) {
	svc, err := c.LedgerService()
	if err != nil {
		return nil, err
	}

	watchers := make([]*oracle.EthWatcher, 0, len(c.Chains))
	for _, chain := range c.Chains {
		pool, err := endpoints.NewPool(chain.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %s", chain.ShortName, err)
		}
		verifier, err := oracle.NewVerifier(pool, oracle.DialEth, chain.Verifications)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %s", chain.ShortName, err)
		}

		watcher, err := oracle.NewEthWatcher(oracle.EthWatcherConfig{
			Network:        chain.ShortName,
			ChainID:        chain.ChainID,
			Oracle:         c.OracleAccount,
			BridgeContract: common.HexToAddress(chain.BridgeContract),
			TokenDecimals:  chain.TokenDecimals,
			Symbol:         c.symbol,
			Pool:           pool,
			Dial:           oracle.DialEth,
			Ledger:         c.ledgerClient(svc),
			Cursors:        c.cursors,
			Notifier:       c.alerts,
			Verifier:       verifier,
			StartBlock:     chain.StartBlock,
			BlocksToWait:   chain.BlocksToWait,
			LookBack:       chain.LookBack,
			BatchSize:      chain.BatchSize,
			PollInterval:   time.Duration(chain.PollInterval) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("chain %s: %s", chain.ShortName, err)
		}
		watchers = append(watchers, watcher)
	}
	return watchers, nil
}

// LedgerWatcher builds the signing loop of this oracle.
func (c *Config) LedgerWatcher() (*oracle.LedgerWatcher, error) {
	svc, err := c.LedgerService()
	if err != nil {
		return nil, err
	}

	return oracle.NewLedgerWatcher(oracle.LedgerWatcherConfig{
		Network: "ledger",
		Oracle:  c.OracleAccount,
		Key:     c.oracleKey,
		Ledger:  c.ledgerClient(svc),
		Cursors: c.cursors,
		Guard:   c.guard,
	})
}

// ledgerClient wraps the in-process state machine with the retrying
// submission client all oracle loops go through.
func (c *Config) ledgerClient(svc *application.LedgerService) ports.LedgerClient {
	opts := []ledgerclient.Option{}
	if c.guard != nil {
		opts = append(opts, ledgerclient.WithResourceHandler(c.guard))
	}
	return ledgerclient.New(ledgerclient.NewLocal(svc), opts...)
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) notifierService() error {
	c.alerts = notifier.NewService(
		c.TelegramBotToken, c.TelegramChatID, c.TelegramCostChatID,
	)
	return nil
}

func (c *Config) cursorStore() error {
	cursors, err := oracle.NewFileCursorStore(filepath.Join(c.Datadir, "cursors"))
	if err != nil {
		return err
	}
	c.cursors = cursors
	return nil
}

func (c *Config) resourceGuard() error {
	if c.LenderURL == "" {
		return nil
	}

	payment, err := domain.ParseAsset(c.LenderPayment)
	if err != nil {
		return fmt.Errorf("invalid lender payment: %s", err)
	}
	dailyCap, err := domain.ParseAsset(c.LenderDailyCap)
	if err != nil {
		return fmt.Errorf("invalid lender daily cap: %s", err)
	}

	guard, err := oracle.NewResourceGuard(oracle.ResourceGuardConfig{
		Lender:       resourcelender.NewService(c.LenderURL, c.OracleAccount),
		Notifier:     c.alerts,
		Resources:    c.LenderResources,
		MinAvailable: c.LenderMinCapacity,
		Payment:      payment,
		DailyCap:     dailyCap,
	})
	if err != nil {
		return err
	}
	c.guard = guard
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
