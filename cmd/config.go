package main

import "time"

type Config struct {
	Host            string        `env:"HOST,default=localhost"`
	Port            int           `env:"PORT,default=5000"`
	LogLevel        string        `env:"LOG_LEVEL,default=INFO"`
	StoreBackend    string        `env:"STORE_BACKEND,default=badger"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true"`
	MongoURI        string        `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase   string        `env:"MONGO_DATABASE,default=chat_relay"`
	MongoPoolSize   uint64        `env:"MONGO_POOL_SIZE,default=50"`
	RedisAddr       string        `env:"REDIS_ADDR"`
	PresenceTTL     time.Duration `env:"PRESENCE_TTL,default=2m"`
	LimitMessages   *int          `env:"LIMIT_MESSAGES"`
	JWTSecret       string        `env:"JWT_SECRET,required=true"`
	TokenDuration   time.Duration `env:"TOKEN_DURATION,default=24h"`
	RequireAuth     bool          `env:"REQUIRE_AUTH,default=false"`
	AllowedOrigin   string        `env:"ALLOWED_ORIGIN"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=64"`
	MaxFrameSize    int64         `env:"MAX_FRAME_SIZE,default=65536"`
	PushTimeout     time.Duration `env:"PUSH_TIMEOUT,default=2s"`
	WriteWait       time.Duration `env:"WRITE_WAIT,default=10s"`
	PongWait        time.Duration `env:"PONG_WAIT,default=60s"`
	RestartInterval time.Duration `env:"RESTART_INTERVAL,default=1s"`
	StatsInterval   time.Duration `env:"STATS_INTERVAL,default=5s"`
	ReportInterval  time.Duration `env:"REPORT_INTERVAL,default=0s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
