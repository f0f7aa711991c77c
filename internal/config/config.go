package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/vfg2006/trusted-etl/internal/domain"
	"github.com/vfg2006/trusted-etl/pkg/sqlident"
)

type Config struct {
	App                App                `mapstructure:",squash"`
	Server             Server             `mapstructure:",squash"`
	Database           Database           `mapstructure:",squash"`
	Source             Source             `mapstructure:",squash"`
	Target             Target             `mapstructure:",squash"`
	Reconciliation     Reconciliation     `mapstructure:",squash"`
	ReconciliationSync ReconciliationSync `mapstructure:",squash"`
	Metrics            Metrics            `mapstructure:",squash"`
	Auth               Auth               `mapstructure:",squash"`
}

type App struct {
	LogLevel string `mapstructure:"log_level"`
	Env      string `mapstructure:"app_env"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	DSN              string        `mapstructure:"-"`
	Driver           string        `mapstructure:"database_driver"`
	Password         string        `mapstructure:"database_password"`
	URL              string        `mapstructure:"database_url"`
	User             string        `mapstructure:"database_user"`
	SSLMode          string        `mapstructure:"database_sslmode"`
	ConnectTimeout   time.Duration `mapstructure:"database_connect_timeout"`
	StatementTimeout time.Duration `mapstructure:"database_statement_timeout"`
	MaxOpenConns     int           `mapstructure:"database_max_open_conns"`
}

// Source aponta para as tabelas brutas. Sem DSN a origem fica no mesmo banco do destino.
type Source struct {
	DSN        string `mapstructure:"source_database_dsn"`
	Schema     string `mapstructure:"source_schema"`
	StageTable string `mapstructure:"source_stage_table"`
	OwnerTable string `mapstructure:"source_owner_table"`
	DealTable  string `mapstructure:"source_deal_table"`
}

type Target struct {
	Schema      string `mapstructure:"target_schema"`
	StageTable  string `mapstructure:"target_stage_table"`
	OwnerTable  string `mapstructure:"target_owner_table"`
	FactTable   string `mapstructure:"target_fact_table"`
	RunLogTable string `mapstructure:"run_log_table"`
}

type Reconciliation struct {
	PlaceholderSentinel string `mapstructure:"placeholder_sentinel"`
	HealEnabled         bool   `mapstructure:"heal_enabled"`
	HealTopN            int    `mapstructure:"heal_top_n"`
	RunLogEnabled       bool   `mapstructure:"run_log_enabled"`
}

type ReconciliationSync struct {
	Enabled      bool          `mapstructure:"reconciliation_sync_enabled"`
	SuccessDelay time.Duration `mapstructure:"reconciliation_success_delay"`
	FailureDelay time.Duration `mapstructure:"reconciliation_failure_delay"`
	RunOnStart   bool          `mapstructure:"reconciliation_run_on_start"`
}

type Metrics struct {
	Backend    string        `mapstructure:"metrics_backend"`
	JobName    string        `mapstructure:"metrics_job_name"`
	Tags       []string      `mapstructure:"metrics_tags"`
	FlushEvery time.Duration `mapstructure:"metrics_flush_every"`
}

type Auth struct {
	Secret   string        `mapstructure:"auth_secret"`
	TokenTTL time.Duration `mapstructure:"auth_token_ttl"`
}

func SetDefaults() {
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("APP_ENV", "development")

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", 8000)

	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_URL", "localhost:5432/hubspot")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_CONNECT_TIMEOUT", 10*time.Second)
	viper.SetDefault("DATABASE_STATEMENT_TIMEOUT", 30*time.Second) // vale para todo comando
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 2)

	defaults := domain.DefaultModelNames()
	viper.SetDefault("SOURCE_DATABASE_DSN", "")
	viper.SetDefault("SOURCE_SCHEMA", defaults.SourceSchema)
	viper.SetDefault("SOURCE_STAGE_TABLE", defaults.SourceStageTable)
	viper.SetDefault("SOURCE_OWNER_TABLE", defaults.SourceOwnerTable)
	viper.SetDefault("SOURCE_DEAL_TABLE", defaults.SourceDealTable)

	viper.SetDefault("TARGET_SCHEMA", defaults.TargetSchema)
	viper.SetDefault("TARGET_STAGE_TABLE", defaults.StageTable)
	viper.SetDefault("TARGET_OWNER_TABLE", defaults.OwnerTable)
	viper.SetDefault("TARGET_FACT_TABLE", defaults.FactTable)
	viper.SetDefault("RUN_LOG_TABLE", "etl_run_log")

	viper.SetDefault("PLACEHOLDER_SENTINEL", "DESCONHECIDO")
	viper.SetDefault("HEAL_ENABLED", true)
	viper.SetDefault("HEAL_TOP_N", 10)
	viper.SetDefault("RUN_LOG_ENABLED", true)

	// Defaults para o agendador de reconciliação
	viper.SetDefault("RECONCILIATION_SYNC_ENABLED", true)
	viper.SetDefault("RECONCILIATION_SUCCESS_DELAY", time.Hour)      // próxima execução após sucesso
	viper.SetDefault("RECONCILIATION_FAILURE_DELAY", 5*time.Minute) // nova tentativa após falha
	viper.SetDefault("RECONCILIATION_RUN_ON_START", true)

	viper.SetDefault("METRICS_BACKEND", "none")
	viper.SetDefault("METRICS_JOB_NAME", "trusted-etl")
	viper.SetDefault("METRICS_TAGS", "")
	viper.SetDefault("METRICS_FLUSH_EVERY", time.Minute)

	viper.SetDefault("AUTH_SECRET", "your_secret_key")
	viper.SetDefault("AUTH_TOKEN_TTL", 24*time.Hour)
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile()

	config := &Config{}

	SetDefaults()

	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logrus.Debug("Usando variáveis de ambiente (viper não conseguiu ler .env): ", err)
	}

	err := viper.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.Database.DSN = config.Database.BuildDSN()

	return config, nil
}

// BuildDSN monta a URL de conexão com sslmode, connect_timeout e statement_timeout.
func (d Database) BuildDSN() string {
	params := url.Values{}
	if d.SSLMode != "" {
		params.Set("sslmode", d.SSLMode)
	}
	if d.ConnectTimeout > 0 {
		params.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))
	}
	if d.StatementTimeout > 0 {
		params.Set("statement_timeout", strconv.FormatInt(d.StatementTimeout.Milliseconds(), 10))
	}

	dsn := fmt.Sprintf(
		"%s://%s@%s",
		d.Driver,
		url.UserPassword(d.User, d.Password).String(),
		d.URL,
	)
	if len(params) > 0 {
		dsn += "?" + params.Encode()
	}
	return dsn
}

func (c *Config) ModelNames() domain.ModelNames {
	return domain.ModelNames{
		SourceSchema:     c.Source.Schema,
		SourceStageTable: c.Source.StageTable,
		SourceOwnerTable: c.Source.OwnerTable,
		SourceDealTable:  c.Source.DealTable,
		TargetSchema:     c.Target.Schema,
		StageTable:       c.Target.StageTable,
		OwnerTable:       c.Target.OwnerTable,
		FactTable:        c.Target.FactTable,
	}
}

// Validate rejeita nomes de tabela e schema fora da lista permitida, já que
// eles acabam dentro de comandos DDL.
func (c *Config) Validate() error {
	if _, err := domain.NewModel(c.ModelNames()); err != nil {
		return fmt.Errorf("configuração de tabelas inválida: %w", err)
	}
	if err := sqlident.Validate(c.Target.RunLogTable); err != nil {
		return fmt.Errorf("configuração de tabelas inválida: %w", err)
	}
	if c.Reconciliation.PlaceholderSentinel == "" {
		return errors.New("PLACEHOLDER_SENTINEL não pode ser vazio")
	}
	if c.ReconciliationSync.SuccessDelay <= 0 || c.ReconciliationSync.FailureDelay <= 0 {
		return errors.New("os intervalos do agendador de reconciliação devem ser positivos")
	}
	return nil
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	locations := []string{
		filepath.Join(cwd, ".env"),               // Diretório atual
		filepath.Join(filepath.Dir(cwd), ".env"), // Diretório pai
		filepath.Join(cwd, "../../.env"),         // Dois diretórios acima
	}

	for _, location := range locations {
		if err := godotenv.Load(location); err == nil {
			logrus.Info("Arquivo .env carregado de: ", location)
			return
		}
	}

	logrus.Debug("Nenhum arquivo .env encontrado, usando apenas variáveis de ambiente")
}
