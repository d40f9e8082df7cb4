package policy

// Role to permission table. Admins get everything; learners get the
// catalog-browsing and attempt surface plus their own records.
var RolePermissions = map[string][]string{
	"user": {
		"catalog:view",
		"attempt:start",
		"attempt:submit",
		"score:view-own",
		"stats:view-own",
	},
	"admin": {
		"*", // everything
	},
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
