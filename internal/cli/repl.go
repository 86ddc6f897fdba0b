package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	hasIdentity() bool
	Keygen(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Whoami(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Share(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Raw(ctx context.Context, args []string) error
	Decrypt(ctx context.Context, args []string) error
	Watch(ctx context.Context, args []string) error
}

// runREPL reads a line from scanner, parses the first token as the command
// and dispatches the rest as arguments. The loop exits on scanner EOF, on
// ctx cancellation or when the user types "exit" or "quit".
//
// Commands:
//
//	help                                     show available commands
//	keygen                                   create a new keypair
//	import <file>                            load a private JWK
//	export <file>                            write your public JWK
//	whoami                                   print your public JWK
//	upload <path> [-p]                       encrypt and publish a file
//	list                                     list ledger records
//	share <recordId> <recipient.json>        grant a recipient access
//	download <recordId> <outDir> [-p]        fetch and decrypt
//	raw <recordId> <outDir>                  export ciphertext and sidecar
//	decrypt <cipher> <sidecar> <out> [-p]    decrypt a raw export offline
//	watch                                    toggle live ledger updates
//	exit | quit                              leave the program
//
// Errors returned by commands are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("gophshare %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.hasIdentity() {
				printlnFn("Available commands: keygen, import, export, whoami, upload, (l)ist, share, download, raw, decrypt, watch, exit")
			} else {
				printlnFn("Available commands: keygen, import, upload -p, (l)ist, download -p, raw, decrypt -p, watch, exit")
			}

		case "keygen":
			err = a.Keygen(ctx, args)
		case "import":
			err = a.Import(ctx, args)
		case "export":
			err = a.Export(ctx, args)
		case "whoami":
			err = a.Whoami(ctx, args)
		case "upload":
			err = a.Upload(ctx, args)
		case "l", "list":
			err = a.List(ctx, args)
		case "share":
			err = a.Share(ctx, args)
		case "download":
			err = a.Download(ctx, args)
		case "raw":
			err = a.Raw(ctx, args)
		case "decrypt":
			err = a.Decrypt(ctx, args)
		case "watch":
			err = a.Watch(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

// usageError reports a malformed command line.
type usageError string

func (u usageError) Error() string {
	return "usage: " + string(u)
}

// splitFlag removes flag from args and reports whether it was present.
func splitFlag(args []string, flag string) ([]string, bool) {
	out := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if a == flag {
			found = true
			continue
		}
		out = append(out, a)
	}
	return out, found
}
