package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/cody-community/cody-backend/pkg/auth"
	"github.com/cody-community/cody-backend/pkg/config"
	"github.com/cody-community/cody-backend/pkg/logger"
)

// servicetoken mints a bearer token for a collaborator such as the gateway bot.
func main() {
	logg := logger.New(logger.Options{ServiceName: "servicetoken"})
	_ = godotenv.Load()

	service := flag.String("service", "gateway-bot", "calling service name (token subject)")
	guild := flag.String("guild", "", "optional guild scope; defaults to CODY_DISCORD_GUILD_ID")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	guildID := *guild
	if guildID == "" {
		guildID = cfg.Discord.GuildID
	}

	token, err := auth.MintServiceToken(cfg.JWT, time.Now(), auth.ServiceTokenPayload{
		Service: *service,
		GuildID: guildID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to mint service token", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
