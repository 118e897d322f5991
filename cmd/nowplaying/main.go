// Command nowplaying records what an HLS radio stream is playing and serves
// the resulting history over HTTP.
package main

func main() {
	Execute()
}
