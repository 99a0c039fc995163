// Command token issues a bearer token for a conversational runtime worker,
// signed with the server's JWT key.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "voicedesk/internal/jwt_token"
	"voicedesk/internal/platform/config"
	liststr "voicedesk/pkg/platform/strings"
)

func main() {
	clientID := flag.String("client", "runtime", "client id carried in the token")
	scopes := flag.String("scopes", jwttoken.ScopeCalls+","+jwttoken.ScopeEvaluations+","+jwttoken.ScopeDashboard, "comma-separated scopes")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.FromEnv()
	svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	token, err := svc.GenerateServiceToken(*clientID, liststr.SplitList(*scopes), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "issue token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
