package config

// GameSettings are the party game tunables.
type GameSettings struct {
	MinPlayers           int    `env:"GAME_MIN_PLAYERS" envDefault:"2"`
	DefaultRoundsPerGame int    `env:"GAME_DEFAULT_ROUNDS" envDefault:"5"`
	MaxRoundsPerGame     int    `env:"GAME_MAX_ROUNDS" envDefault:"50"`
	DefaultTimePerRound  int    `env:"GAME_DEFAULT_TIME_PER_ROUND" envDefault:"30"`
	MaxQuestionLength    int    `env:"GAME_MAX_QUESTION_LENGTH" envDefault:"500"`
	StartingBalance      int64  `env:"LEDGER_STARTING_BALANCE" envDefault:"10"`
	SnowflakeNode        int64  `env:"LEDGER_SNOWFLAKE_NODE" envDefault:"1"`
	AnonymizerSecret     string `env:"ANONYMIZER_SECRET" envDefault:"dev-anonymizer-secret"`
}

// PartyGameConfig is everything the party game service needs.
type PartyGameConfig struct {
	Server   ServerConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Game     GameSettings
}

// LoadPartyGameConfig reads the environment, after an optional .env file.
func LoadPartyGameConfig() (*PartyGameConfig, error) {
	cfg := &PartyGameConfig{}
	if err := load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
