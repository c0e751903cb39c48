// Command bookmarkctl runs maintenance tasks against a bookmarkd store:
// one-off summaries, bulk refresh, export and cache purging.
package main

func main() {
	Execute()
}
