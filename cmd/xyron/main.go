package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"xdao.co/xyron/client"
	"xdao.co/xyron/grpcval"
	"xdao.co/xyron/hashchain"
	"xdao.co/xyron/internal/config"
	"xdao.co/xyron/signature"
	"xdao.co/xyron/wire"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "algorithms":
		return cmdAlgorithms(args[1:], out, errOut)
	case "chain":
		return cmdChain(args[1:], in, out, errOut)
	case "signature":
		return cmdSignature(args[1:], out, errOut)
	case "validate":
		return cmdValidate(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "xyron: X11 hash-chain validation tools")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  xyron algorithms")
	fmt.Fprintln(w, "  xyron chain [--rounds <n>] [--hex] (<input> | -)")
	fmt.Fprintln(w, "  xyron signature new --node <id> [--sms]")
	fmt.Fprintln(w, "  xyron signature parse <signature>")
	fmt.Fprintln(w, "  xyron validate --node <id> [--payload <text>] [--id <request-id>] [--socket <path> | --grpc-socket <path>] [--timeout <d>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - chain reads stdin when the input is -; --hex decodes the input first")
	fmt.Fprintln(w, "  - validate prints the daemon's JSON response on one line")
	fmt.Fprintln(w, "  - validate generates a request id when --id is empty")
}

func cmdAlgorithms(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("algorithms", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xyron algorithms")
		return 2
	}
	for _, a := range hashchain.Algorithms() {
		_, _ = fmt.Fprintf(out, "%d\t%s\t%d\n", int(a), a, a.Size())
	}
	return 0
}

func cmdChain(args []string, in io.Reader, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("chain", flag.ContinueOnError)
	fs.SetOutput(errOut)
	rounds := fs.Int("rounds", hashchain.K, "Number of rounds")
	isHex := fs.Bool("hex", false, "Input is hex-encoded")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: xyron chain [--rounds <n>] [--hex] (<input> | -)")
		return 2
	}

	var input []byte
	if fs.Arg(0) == "-" {
		b, err := io.ReadAll(in)
		if err != nil {
			fmt.Fprintf(errOut, "read stdin: %v\n", err)
			return 1
		}
		input = b
	} else {
		input = []byte(fs.Arg(0))
	}
	if *isHex {
		b, err := hex.DecodeString(strings.TrimSpace(string(input)))
		if err != nil {
			fmt.Fprintf(errOut, "invalid hex input: %v\n", err)
			return 2
		}
		input = b
	}

	res, err := hashchain.Chain(input, *rounds)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	for i, d := range res.Digests {
		_, _ = fmt.Fprintf(out, "%d\t%s\t%s\n", i, res.Algorithms[i], d)
	}
	_, _ = fmt.Fprintln(out, res.FinalHash)
	return 0
}

func cmdSignature(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: xyron signature <subcommand> ...")
		fmt.Fprintln(errOut, "subcommands: new, parse")
		return 2
	}
	switch args[0] {
	case "new":
		fs := flag.NewFlagSet("signature new", flag.ContinueOnError)
		fs.SetOutput(errOut)
		node := fs.String("node", "", "Node id")
		sms := fs.Bool("sms", false, "Tag as a payload-carrying validation")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if *node == "" || fs.NArg() != 0 {
			fmt.Fprintln(errOut, "usage: xyron signature new --node <id> [--sms]")
			return 2
		}
		_, _ = fmt.Fprintln(out, signature.Signature(*node, *sms))
		return 0
	case "parse":
		fs := flag.NewFlagSet("signature parse", flag.ContinueOnError)
		fs.SetOutput(errOut)
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}
		if fs.NArg() != 1 {
			fmt.Fprintln(errOut, "usage: xyron signature parse <signature>")
			return 2
		}
		p, err := signature.Parse(fs.Arg(0))
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		_, _ = fmt.Fprintf(out, "kind=%s\nnode=%s\ntime=%s\nrandom=%s\n",
			p.Kind, p.NodeID, time.Unix(p.Unix, 0).UTC().Format(time.RFC3339), p.Random)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown signature subcommand: %s\n", args[0])
		return 2
	}
}

func cmdValidate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(errOut)
	socket := fs.String("socket", envOr(config.EnvSocket, config.DefaultSocketPath), "Daemon socket path")
	grpcSocket := fs.String("grpc-socket", "", "Use the gRPC service on this socket instead")
	node := fs.String("node", "", "Node id")
	id := fs.String("id", "", "Request id (generated when empty)")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "Request timeout")
	var payload optionalString
	fs.Var(&payload, "payload", "Payload to transform")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *node == "" || fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: xyron validate --node <id> [--payload <text>] [--id <request-id>] [--socket <path> | --grpc-socket <path>]")
		return 2
	}

	req := wire.ValidationRequest{RequestID: *id, NodeID: *node}
	if payload.set {
		v := payload.value
		req.Payload = &v
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var (
		resp wire.ValidationResponse
		err  error
	)
	if *grpcSocket != "" {
		resp, err = validateGRPC(ctx, *grpcSocket, req)
	} else {
		resp, err = client.New(*socket).Validate(ctx, req)
	}
	if err != nil {
		fmt.Fprintf(errOut, "validate: %v\n", err)
		return 1
	}

	if err := wire.WriteResponse(out, resp); err != nil {
		fmt.Fprintf(errOut, "write response: %v\n", err)
		return 1
	}
	return 0
}

func validateGRPC(ctx context.Context, path string, req wire.ValidationRequest) (wire.ValidationResponse, error) {
	c, err := grpcval.DialUnix(path, grpcval.DialOptions{})
	if err != nil {
		return wire.ValidationResponse{}, err
	}
	defer c.Close()
	return c.Validate(ctx, req)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// optionalString distinguishes an empty --payload from an absent one.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}
