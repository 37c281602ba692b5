package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/webbmaffian/go-mpsc/channel"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	snd, rcv := channel.New[string]()

	var wg sync.WaitGroup

	for _, name := range []string{"a", "b", "c"} {
		wg.Add(1)
		go runClient(ctx, &wg, snd.Clone(), name)
	}

	// Only the clones keep the channel open
	snd.Close()

	runServer(rcv)
	wg.Wait()
}

func runServer(rcv *channel.Receiver[string]) {
	log.Println("server: started")

	for {
		msg, ok := rcv.Receive()

		if !ok {
			break
		}

		stats := rcv.Stats()
		log.Printf("server: %s | %02d queued, %d senders\n", msg, stats.Len, stats.Senders)
	}

	log.Println("server: all clients gone, closing")
}

func runClient(ctx context.Context, wg *sync.WaitGroup, snd *channel.Sender[string], name string) {
	defer wg.Done()
	defer snd.Close()

	log.Printf("client %s: started\n", name)

	for i := 0; i < 5; i++ {
		select {
		case <-ctx.Done():
			log.Printf("client %s: %s\n", name, ctx.Err())
			return
		case <-time.After(time.Duration(100+len(name)*i*50) * time.Millisecond):
		}

		snd.Send(fmt.Sprintf("%s-%d", name, i))
	}

	log.Printf("client %s: closing\n", name)
}
