package mcp

import "github.com/mark3labs/mcp-go/mcp"

var catalogToolDef = mcp.NewTool("capsule_catalog",
	mcp.WithDescription("List capsules in the remote catalog with their install state (available, installed, update-available), dependency status and file/activity counts."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("source",
		mcp.Description(`Only capsules from this source group. "all" or empty lists every source.`),
	),
	mcp.WithString("state",
		mcp.Description("Only capsules in this install state."),
		mcp.Enum("available", "installed", "update-available"),
	),
	mcp.WithBoolean("refresh",
		mcp.Description("Refetch the manifest before listing."),
	),
)

var installToolDef = mcp.NewTool("capsule_install",
	mcp.WithDescription("Install a capsule: fetch each file into the vault, back up locally edited files, then record it in the settings document and recompute activities."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Capsule id from the catalog."),
	),
)

var updateToolDef = mcp.NewTool("capsule_update",
	mcp.WithDescription("Update an installed capsule to the catalog version. Fails with UP_TO_DATE unless the catalog version is newer or force is set."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Installed capsule id."),
	),
	mcp.WithBoolean("force",
		mcp.Description("Reinstall even when already current."),
	),
)

var removeToolDef = mcp.NewTool("capsule_remove",
	mcp.WithDescription("Remove an installed capsule's files (core files are kept) and drop it from the settings document."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Installed capsule id."),
	),
)

var statusToolDef = mcp.NewTool("capsule_status",
	mcp.WithDescription("List installed capsules with installed and available versions."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id",
		mcp.Description("Only this capsule."),
	),
	mcp.WithBoolean("outdated",
		mcp.Description("Only capsules with a newer catalog version."),
	),
)

var historyToolDef = mcp.NewTool("capsule_history",
	mcp.WithDescription("List journaled install, update and remove operations, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("capsule_id",
		mcp.Description("Only operations on this capsule."),
	),
	mcp.WithNumber("limit",
		mcp.Description("Page size (default 20, max 100)."),
	),
	mcp.WithNumber("offset",
		mcp.Description("Entries to skip."),
	),
)

var moduleListToolDef = mcp.NewTool("module_list",
	mcp.WithDescription("List installed-modules in display order."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var moduleMoveToolDef = mcp.NewTool("module_move",
	mcp.WithDescription("Swap a module with its neighbour. Moving past either end is a no-op."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Module id."),
	),
	mcp.WithString("direction",
		mcp.Required(),
		mcp.Enum("up", "down"),
	),
)

var activityListToolDef = mcp.NewTool("activity_list",
	mcp.WithDescription("List trackable activities derived from installed capsules."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type",
		mcp.Description("Only activities of this type."),
		mcp.Enum("boolean", "value", "rating", "count"),
	),
)
