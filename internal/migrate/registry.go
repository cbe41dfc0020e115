package migrate

// Config is the migration registry for hyprshutdown.toml. The migrations
// themselves are registered by the config package.
var Config = &Registry{Name: "config", CurrentVersion: 2}
