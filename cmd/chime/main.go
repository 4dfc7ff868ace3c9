package main

import (
	"os"
	"os/signal"

	_ "net/http/pprof"

	"github.com/caarlos0/env/v11"
	"github.com/glotchimo/chime/internal/bot"
	"github.com/joho/godotenv"
)

type Conf struct {
	Debug      bool   `env:"DEBUG"`
	Token      string `env:"BOT_TOKEN"`
	Intents    int    `env:"BOT_INTENTS" envDefault:"38977"`
	DataFile   string `env:"DATA_FILE" envDefault:"data.json"`
	CacheURL   string `env:"REDIS_URL"`
	ShardID    int    `env:"SHARD_ID" envDefault:"0"`
	ShardCount int    `env:"SHARD_COUNT" envDefault:"1"`
}

func main() {
	godotenv.Load()

	var conf Conf
	if err := env.Parse(&conf); err != nil {
		panic(err)
	}

	bot, err := bot.NewBot(conf.Debug, conf.DataFile, conf.CacheURL, conf.Token, conf.ShardID, conf.ShardCount, conf.Intents)
	if err != nil {
		panic(err)
	}
	defer bot.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
}
