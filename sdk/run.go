package sdk

var registered *App

// Register installs the plugin definition served by the lifecycle
// exports. Call it from the plugin main package's init function so it
// runs during module initialization in both command and reactor builds.
func Register(def AppDef) {
	registered = NewApp(def)
	setupLogging(def.Name)
}
