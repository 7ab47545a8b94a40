// Command noticectl replays edit scenarios against an in-memory stage and
// prints the notices a broker delivers for them.
package main

func main() {
	execute()
}
