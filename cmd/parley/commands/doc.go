// Package commands defines the parley CLI.
//
// Identity management (init, fingerprint, export, add-friend, friends,
// history) works offline against the encrypted profile store; send and chat
// additionally connect to a relay.
package commands
