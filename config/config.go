package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/glachaux/reunion-rooms/globals"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultAdminUser    = "admin"
	defaultTimeZone     = "Europe/Paris"
	defaultDailySpec    = "5 0 * * *"
	defaultJ14Spec      = "0 9 * * *"
	defaultCodeAttempts = 5
)

// Config is the global configuration object which is filled via the configuration file.
type Config struct {
	PersistenceConfig PersistenceConfig `mapstructure:"persistence"`
	RoomsConfig       RoomsConfig       `mapstructure:"rooms"`
	NotifyConfig      NotifyConfig      `mapstructure:"notify"`
	OIDCConfigs       []OIDCConfig      `mapstructure:"oidc"`
	LogLevel          string            `mapstructure:"log_level"`
	AdminUser         string            `mapstructure:"admin_user"`
}

// An OIDCConfig object configures an OpenID Connect provider that is used to authenticate
// participants. Clients provide an ID token and the name of the provider, the authentication
// is then performed via verification of the token. Claim names the token claim that becomes
// the participant id ("email" when unset); it must be unique across the provider's users.
type OIDCConfig struct {
	Name        string `mapstructure:"name"`
	ClientId    string `mapstructure:"client_id"`
	ProviderUrl string `mapstructure:"provider_url"`
	Claim       string `mapstructure:"claim"`
}

// BuntDBConfig configures the BuntDB file storage backed database.
type BuntDBConfig struct {
	Name string `mapstructure:"name"`
}

// PersistenceConfig configures the persistence backends. Type is one of
// "buntdb", "sqlite", "postgres", "gorm-sqlite", "gorm-postgres".
type PersistenceConfig struct {
	Type string `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`

	BuntDBConfig BuntDBConfig `mapstructure:"buntdb"`
}

// RoomsConfig configures the room code space.
// LegacyRoom is the pre-existing fixed room which may be written without membership;
// an empty value disables the carve-out.
type RoomsConfig struct {
	LegacyRoom   string `mapstructure:"legacy_room"`
	CodeAttempts int    `mapstructure:"code_attempts"`
}

// NotifyConfig configures the scheduled notification dispatcher.
// DailyFilter / J14Filter are optional expr expressions evaluated per room
// (environment: RoomId, DaysLeft, TodayKey); an expression returning false
// skips the room.
type NotifyConfig struct {
	TimeZone    string `mapstructure:"time_zone"`
	DailySpec   string `mapstructure:"daily_spec"`
	J14Spec     string `mapstructure:"j14_spec"`
	FCMEndpoint string `mapstructure:"fcm_endpoint"`
	FCMKey      string `mapstructure:"fcm_key"`
	DailyFilter string `mapstructure:"daily_filter"`
	J14Filter   string `mapstructure:"j14_filter"`
}

func GetFlagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("configuration", pflag.ContinueOnError)
	flagSet.StringP("admin-user", "a", "", "id of the admin user")
	flagSet.String("legacy-room", "", "code of the legacy fixed room")
	return flagSet
}

// wordSepNormalizeFunc allows for normalization of the flag names (which use - as a separator)
func wordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.Replace(name, "-", "_", -1)
	return pflag.NormalizedName(name)
}

// ReadConfiguration reads and parses the configuration located at configPath, which can either
// point to a single TOML file or to a directory, in which case all *.toml files in this
// directory are concatenated. It returns a Config object.
func ReadConfiguration(configPath string, flagSet *pflag.FlagSet) (*Config, error) {
	cfg := Config{}
	flagSet.SetNormalizeFunc(wordSepNormalizeFunc)
	viper.SetDefault("admin_user", defaultAdminUser)
	viper.SetDefault("rooms.code_attempts", defaultCodeAttempts)
	viper.SetDefault("notify.time_zone", defaultTimeZone)
	viper.SetDefault("notify.daily_spec", defaultDailySpec)
	viper.SetDefault("notify.j14_spec", defaultJ14Spec)
	err := viper.BindPFlags(flagSet)
	if err != nil {
		globals.AppLogger.Error("could not bind flags (ignored)", "error", err)
	}
	viper.SetEnvPrefix("REUNION")
	viper.AutomaticEnv()
	if configPath != "" {
		fi, err := os.Stat(configPath)
		if err != nil {
			return nil, err
		}
		contents := make([]byte, 0)
		files := []string{configPath}
		if fi.IsDir() {
			files, err = filepath.Glob(filepath.Join(configPath, "*.toml"))
			if err != nil {
				return nil, err
			}
		}
		for _, configFile := range files {
			fileContents, err := ioutil.ReadFile(configFile)
			if err != nil {
				return nil, err
			}
			contents = append(contents, fileContents...)
			contents = append(contents, '\n')
		}
		viper.SetConfigType("toml")
		err = viper.ReadConfig(bytes.NewBuffer(contents))
		if err != nil {
			globals.AppLogger.Error("could not read config:", "error", err)
		}
	}
	err = viper.Unmarshal(&cfg)
	if err != nil {
		globals.AppLogger.Error("could not unmarshal config:", "error", err)
	}
	// the flag binds at the top level, carry it into the nested block
	if lr := viper.GetString("legacy_room"); lr != "" {
		cfg.RoomsConfig.LegacyRoom = lr
	}

	globals.AppLogger.Debug("config", "cfg", cfg, "all", viper.AllSettings())
	return &cfg, nil
}
