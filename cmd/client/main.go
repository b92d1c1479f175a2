package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"dept-file-transfer/internal/client"
	"dept-file-transfer/internal/identity"
)

func main() {
	addr := getenvDefault("DFT_SERVER_ADDR", "127.0.0.1:8080")
	in := bufio.NewScanner(os.Stdin)

	fmt.Printf("Connecting to server at %s...\n", addr)
	c, err := client.Dial(addr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
	fmt.Println("Connected to server.")

	username := prompt(in, "Username: ")
	password := prompt(in, "Password: ")

	_, resp, err := c.Authenticate(username, password)
	if resp != "" {
		fmt.Printf("Server response: %s\n", resp)
	}
	if err != nil {
		fmt.Println("Authentication failed.")
		os.Exit(1)
	}

	path := prompt(in, "Enter the file path to transfer: ")
	department := chooseDepartment(in)

	resp, err = c.Upload(department, path, printProgress)
	fmt.Println()
	if resp != "" {
		fmt.Printf("Server response: %s\n", resp)
	}
	if err != nil {
		fmt.Println("File transfer failed.")
		os.Exit(1)
	}
	fmt.Println("File transfer completed successfully.")
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		os.Exit(1)
	}
	return strings.TrimSpace(in.Text())
}

// chooseDepartment loops over a numbered menu until a valid choice.
func chooseDepartment(in *bufio.Scanner) string {
	for {
		fmt.Println("\nSelect destination department:")
		for i, dept := range identity.Departments {
			fmt.Printf("%d. %s\n", i+1, dept)
		}
		switch prompt(in, "Choice: ") {
		case "1":
			return string(identity.Departments[0])
		case "2":
			return string(identity.Departments[1])
		default:
			fmt.Println("Invalid choice. Please try again.")
		}
	}
}

func printProgress(sent, total int64) {
	if total == 0 {
		return
	}
	fmt.Printf("\rTransferring: %.2f%% complete", float64(sent)/float64(total)*100)
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
