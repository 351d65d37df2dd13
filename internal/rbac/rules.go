package rbac

// Default policy. Read permissions end in ":view".
var RolePermissions = map[string][]string{
	"viewer": {
		"subject:view",
		"question:view",
		"exam:view",
		"variant:view",
		"user:change_password",
	},
	"teacher": {
		"subject:*",
		"question:*",
		"exam:*",
		"variant:*",
		"user:change_password",
	},
	"admin": {
		"*", // everything
	},
}
