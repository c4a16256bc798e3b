package permissions

// The fixed permission catalog. This is the single reviewable definition of
// the surface granted wholesale to administrators; admins never touch the
// role tables.
func init() {
	perms := []*Permission{
		{
			ID:          "dashboard.view",
			Description: "View the admin dashboard",
		},
		{
			ID:          "analytics.view",
			Description: "View download and sales analytics",
		},
		{
			ID:          "analytics.export",
			Description: "Export analytics data",
		},
		{
			ID:          "users.view",
			Description: "View user accounts",
		},
		{
			ID:          "users.edit",
			Description: "Edit user accounts",
		},
		{
			ID:          "users.ban",
			Description: "Ban and unban user accounts",
		},
		{
			ID:          "mod.view",
			Description: "View mod listings including unpublished ones",
		},
		{
			ID:          "mod.upload",
			Description: "Upload new mod versions",
		},
		{
			ID:          "mod.edit",
			Description: "Edit mod metadata",
		},
		{
			ID:          "mod.delete",
			Description: "Remove mods from the catalog",
		},
		{
			ID:          "roles.view",
			Description: "View roles and their permissions",
		},
		{
			ID:          "roles.create",
			Description: "Create new roles",
		},
		{
			ID:          "roles.edit",
			Description: "Edit roles and their permissions",
		},
		{
			ID:          "roles.delete",
			Description: "Delete non-system roles",
		},
		{
			ID:          "roles.assign",
			Description: "Assign and remove user roles",
		},
		{
			ID:          "content.view",
			Description: "View site content pages",
		},
		{
			ID:          "content.edit",
			Description: "Edit site content pages",
		},
		{
			ID:          "content.publish",
			Description: "Publish site content changes",
		},
		{
			ID:          "system.settings",
			Description: "Change system settings",
		},
		{
			ID:          "system.audit",
			Description: "View the audit log",
		},
		{
			ID:          "support.view",
			Description: "View support tickets",
		},
		{
			ID:          "support.create",
			Description: "Reply to and create support tickets",
		},
		{
			ID:          "support.delete",
			Description: "Delete support tickets",
		},
	}

	for _, perm := range perms {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}
