// Command devtoken prints an access token accepted by a local server.
//
//	go run ./cmd/devtoken -sub auth0|42 -perm read:api,matches:create,matches:contact
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kdufoot/matchfinder/internal/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "dev-user", "token subject")
	perms := flag.String("perm", "read:api,matches:create,matches:contact", "comma separated permissions")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	secret := flag.String("secret", os.Getenv("JWT_SECRET"), "signing secret (defaults to JWT_SECRET)")
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "devtoken: no secret; set JWT_SECRET or pass -secret")
		os.Exit(2)
	}
	var list []string
	for _, p := range strings.Split(*perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			list = append(list, p)
		}
	}
	tok, err := utils.NewAccessToken(*secret, *sub, list, *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, "devtoken:", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
