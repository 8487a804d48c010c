package fz

import "github.com/fzracing/fz/sdk"

// Def declares the racing game plugin.
func Def() sdk.AppDef {
	return sdk.AppDef{
		Name:        "fz",
		Version:     "1.0.0",
		Description: "Anti-gravity racing: bank through a looped track against everyone on the server.",
		Config:      &Config{},
		NewClient:   newClient,
		NewServer:   newServer,
	}
}
