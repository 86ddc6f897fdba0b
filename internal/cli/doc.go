// Package cli provides the interactive gophshare command-line client.
//
// It wires configuration, the selected backends, the local identity and an
// interactive REPL. Typical flow: generate or import a keypair, upload
// files (RSA or password protected), share them with a recipient's public
// key, and download what was shared with you.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command list.
package cli
