package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ivankudzin/chatwarden/internal/config"
	authsvc "github.com/ivankudzin/chatwarden/internal/services/auth"
)

func main() {
	operator := flag.String("operator", "", "operator name stored as the token subject")
	chats := flag.String("chats", "", "comma separated chat ids the token may manage, empty for all")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to auth.jwt_access_ttl")
	flag.Parse()

	cfgPath := os.Getenv("APP_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	if strings.TrimSpace(*operator) == "" {
		log.Fatal("use -operator to name the token owner")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	chatIDs, err := parseChatIDs(*chats)
	if err != nil {
		log.Fatalf("parse chats: %v", err)
	}

	accessTTL := cfg.Auth.JWTAccessTTL
	if *ttl > 0 {
		accessTTL = *ttl
	}

	token, expiresAt, err := authsvc.NewJWTManager(cfg.Auth.JWTSecret, accessTTL).GenerateAccessToken(*operator, chatIDs)
	if err != nil {
		log.Fatalf("generate token: %v", err)
	}

	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
}

func parseChatIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse chat id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
