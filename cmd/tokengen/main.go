// Command tokengen prints an access token for local testing:
//
//	tokengen -user ana -name "Ana Lima" -roles VIEW_MOVIES,RATE_MOVIES
package main

import (
    "flag"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/iliyamo/movie-catalog/internal/config"
    "github.com/iliyamo/movie-catalog/internal/model"
    "github.com/iliyamo/movie-catalog/internal/utils"
)

var allPermissions = []string{model.PermCreateMovies, model.PermModifyMovies, model.PermViewMovies, model.PermRateMovies}

func main() {
    config.LoadDotenv()

    user := flag.String("user", "", "username carried by the token (required)")
    name := flag.String("name", "", "display name, defaults to the username")
    roles := flag.String("roles", strings.Join(allPermissions, ","), "comma separated permissions")
    ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
    secret := flag.String("secret", os.Getenv("JWT_SECRET"), "HMAC secret, defaults to $JWT_SECRET")
    flag.Parse()

    if *user == "" || *secret == "" {
        flag.Usage()
        os.Exit(2)
    }
    if *name == "" {
        *name = *user
    }

    id := model.Identity{Username: *user, Name: *name, Roles: splitRoles(*roles)}
    tok, err := utils.NewAccessToken(*secret, id, *ttl)
    if err != nil {
        fmt.Fprintln(os.Stderr, "tokengen:", err)
        os.Exit(1)
    }
    fmt.Println(tok.Token)
}

func splitRoles(s string) []string {
    out := []string{}
    for _, r := range strings.Split(s, ",") {
        if r = strings.TrimSpace(strings.ToUpper(r)); r != "" {
            out = append(out, r)
        }
    }
    return out
}
