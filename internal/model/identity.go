package model

// Permission names carried in the "roles" claim of an access token.
const (
    PermCreateMovies = "CREATE_MOVIES"
    PermModifyMovies = "MODIFY_MOVIES"
    PermViewMovies   = "VIEW_MOVIES"
    PermRateMovies   = "RATE_MOVIES"
)

// Identity is the verified caller derived from a bearer token.  It is never
// persisted.
type Identity struct {
    Username string   `json:"username"`
    Name     string   `json:"name"`
    Roles    []string `json:"roles"`
}

// HasRoles reports whether every role in target is held by the identity.
// An empty target is always satisfied.
func (id *Identity) HasRoles(target ...string) bool {
    held := make(map[string]bool, len(id.Roles))
    for _, r := range id.Roles {
        held[r] = true
    }
    for _, t := range target {
        if !held[t] {
            return false
        }
    }
    return true
}
