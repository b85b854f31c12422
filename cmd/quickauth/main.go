// Command quickauth runs the Quick Auth API and offers token and nonce tooling.
package main

func main() {
	Execute()
}
