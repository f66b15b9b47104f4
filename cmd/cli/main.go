package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const version = "1.0.0"

var (
	serverAddr string
	timeout    time.Duration
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	flag.StringVar(&serverAddr, "server", "localhost:7070", "vamana IPC server address")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	command := os.Args[1]

	switch command {
	case "create":
		handleCreate(os.Args[2:])
	case "write":
		handleWrite(os.Args[2:])
	case "search":
		handleSearch(os.Args[2:])
	case "optimize":
		handleOptimize(os.Args[2:])
	case "memory":
		handleMemory(os.Args[2:])
	case "bulkload":
		handleBulkload(os.Args[2:])
	case "auth":
		handleAuth(os.Args[2:])
	case "version":
		fmt.Printf("vamana-cli version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showUsage()
		os.Exit(1)
	}
}

func handleCreate(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	var (
		dimension  = fs.Int("dimension", 0, "vector dimension (required)")
		similarity = fs.String("similarity", "euclidean", "euclidean|dot|cosine")
		m          = fs.Int("m", 0, "max neighbors per node (0 uses server default)")
		ef         = fs.Int("ef-construction", 0, "build-time beam width (0 uses server default)")
		alpha      = fs.Float64("alpha", 0, "RobustPrune occlusion factor (0 uses server default)")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	if *dimension <= 0 {
		fmt.Println("Error: -dimension is required and must be positive")
		fs.Usage()
		os.Exit(1)
	}

	cmd := fmt.Sprintf("CREATE %d %s", *dimension, *similarity)
	if *m > 0 {
		cmd += fmt.Sprintf(" %d", *m)
		if *ef > 0 {
			cmd += fmt.Sprintf(" %d", *ef)
			if *alpha > 0 {
				cmd += fmt.Sprintf(" %g", *alpha)
			}
		}
	}

	resp := sendCommand(cmd)
	fmt.Println(resp)
}

func handleWrite(args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	vectorStr := fs.String("vector", "", "vector as JSON array (required)")
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	vector := parseVectorFlag(fs, *vectorStr)

	resp := sendCommand("WRITE " + formatVector(vector))
	if strings.HasPrefix(resp, "OK") {
		fmt.Printf("✓ Inserted at ordinal %s\n", strings.TrimPrefix(resp, "OK "))
	} else {
		fmt.Println(resp)
		os.Exit(1)
	}
}

func handleSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var (
		queryStr = fs.String("query", "", "query vector as JSON array (required)")
		k        = fs.Int("k", 10, "number of results to return")
		efSearch = fs.Int("ef-search", 0, "beam width for this query (defaults to max(k, 64))")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	vector := parseVectorFlag(fs, *queryStr)

	ef := *efSearch
	if ef <= 0 {
		ef = 64
	}
	if ef < *k {
		ef = *k
	}

	cmd := fmt.Sprintf("SEARCH %d %d %s", ef, *k, formatVector(vector))
	resp := sendCommand(cmd)
	displaySearchResults(resp)
}

func handleOptimize(args []string) {
	fs := flag.NewFlagSet("optimize", flag.ExitOnError)
	var (
		subvectors = fs.Int("subvectors", 8, "number of PQ subspaces")
		centered   = fs.Bool("centered", false, "center vectors before training")
	)
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	cmd := fmt.Sprintf("OPTIMIZE %d %v", *subvectors, *centered)
	resp := sendCommand(cmd)
	if strings.HasPrefix(resp, "OK") {
		fmt.Printf("✓ PQ codec trained, compression ratio %s\n", strings.TrimPrefix(resp, "OK "))
	} else {
		fmt.Println(resp)
		os.Exit(1)
	}
}

func handleMemory(args []string) {
	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	resp := sendCommand("MEMORY")
	lines := strings.Split(resp, "\n")
	fmt.Println("=== Index Statistics ===")
	for _, line := range lines[1:] {
		parts := strings.SplitN(line, " ", 2)
		if len(parts) == 2 {
			fmt.Printf("  %-24s %s\n", parts[0], parts[1])
		}
	}
}

func handleBulkload(args []string) {
	fs := flag.NewFlagSet("bulkload", flag.ExitOnError)
	path := fs.String("path", "", "path to newline-delimited JSON vector file, readable by the server (required)")
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	if *path == "" {
		fmt.Println("Error: -path is required")
		fs.Usage()
		os.Exit(1)
	}

	resp := sendCommand("BULKLOAD " + *path)
	if strings.HasPrefix(resp, "OK") {
		fmt.Printf("✓ Loaded %s vectors\n", strings.TrimPrefix(resp, "OK "))
	} else {
		fmt.Println(resp)
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	fs := flag.NewFlagSet("auth", flag.ExitOnError)
	token := fs.String("token", "", "bearer token issued for this server (required)")
	fs.StringVar(&serverAddr, "server", serverAddr, "vamana IPC server address")
	fs.Parse(args)

	if *token == "" {
		fmt.Println("Error: -token is required")
		fs.Usage()
		os.Exit(1)
	}

	resp := sendCommand("AUTH " + *token)
	fmt.Println(resp)
}

func parseVectorFlag(fs *flag.FlagSet, raw string) []float32 {
	if raw == "" {
		fmt.Println("Error: vector is required")
		fs.Usage()
		os.Exit(1)
	}
	var vector []float64
	if err := json.Unmarshal([]byte(raw), &vector); err != nil {
		fmt.Printf("Error parsing vector: %v\n", err)
		os.Exit(1)
	}
	vector32 := make([]float32, len(vector))
	for i, v := range vector {
		vector32[i] = float32(v)
	}
	return vector32
}

func formatVector(vector []float32) string {
	parts := make([]string, len(vector))
	for i, v := range vector {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return strings.Join(parts, " ")
}

// sendCommand opens a fresh connection, writes one command line, and reads
// the full response: every response the server sends is terminated by a
// blank line, so a client never needs to pre-parse a result count to know
// when a multi-line reply (SEARCH, MEMORY) is complete.
func sendCommand(cmd string) string {
	conn, err := net.DialTimeout("tcp", serverAddr, 5*time.Second)
	if err != nil {
		fmt.Printf("Failed to connect to server at %s: %v\n", serverAddr, err)
		os.Exit(1)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(timeout))

	if _, err := fmt.Fprintln(conn, cmd); err != nil {
		fmt.Printf("Error sending command: %v\n", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func displaySearchResults(resp string) {
	lines := strings.Split(resp, "\n")
	if len(lines) == 0 || strings.HasPrefix(lines[0], "ERROR") {
		fmt.Println(resp)
		os.Exit(1)
	}

	header := strings.Fields(lines[0])
	count := 0
	if len(header) >= 2 {
		count, _ = strconv.Atoi(header[1])
	}

	fmt.Printf("Found %d results\n\n", count)
	for i, line := range lines[1:] {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		fmt.Printf("Result %d:\n", i+1)
		fmt.Printf("  Ordinal: %s\n", parts[0])
		fmt.Printf("  Score:   %s\n\n", parts[1])
	}
}

func showUsage() {
	fmt.Println(`vamana-cli - client for the vamana IPC server

Usage:
  vamana-cli <command> [options]

Commands:
  create      Create (or replace) the server's index
  write       Insert a vector
  search      Search for similar vectors
  optimize    Train and install a Product Quantization codec
  memory      Show process/graph/PQ statistics
  bulkload    Load vectors from a newline-delimited JSON file on the server
  auth        Authenticate the connection with a bearer token
  version     Show version
  help        Show this help message

Common Options (given after the command):
  -server ADDRESS   vamana IPC server address (default: localhost:7070)

Requests time out after 30s; the timeout is not settable from the command line.

Examples:

  # Create an index
  vamana-cli create -dimension 3 -similarity cosine

  # Insert a vector
  vamana-cli write -vector '[0.1, 0.2, 0.3]'

  # Search for similar vectors
  vamana-cli search -query '[0.15, 0.25, 0.35]' -k 10

  # Train a PQ codec once enough vectors are loaded
  vamana-cli optimize -subvectors 8

  # Inspect process/graph/PQ memory stats
  vamana-cli memory

  # Use a custom server
  vamana-cli search -server my-server:7070 -query '[0.1, 0.2]'`)
}
