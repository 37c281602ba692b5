package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/gosuri/uilive"

	"github.com/webbmaffian/go-mpsc/spool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[1:]

	if len(args) != 1 {
		log.Println("Exactly one (1) argument expected, and this must be the path to the spool file.")
		return
	}

	s, err := spool.OpenReadonly(args[0])

	if err != nil {
		log.Println(err)
		return
	}

	defer s.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	writer := uilive.New()

	capacity := writer.Newline()
	recordSize := writer.Newline()
	startIdx := writer.Newline()
	length := writer.Newline()
	written := writer.Newline()
	read := writer.Newline()

	// start listening for updates and render
	writer.Start()
	defer writer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintf(capacity, "Capacity: %d\n", s.Cap())
			fmt.Fprintf(recordSize, "Record size: %d\n", s.RecordSize())
			fmt.Fprintf(startIdx, "Start index: %d\n", s.StartIndex())
			fmt.Fprintf(length, "Length: %d\n", s.Len())
			fmt.Fprintf(written, "Written: %d\n", s.Written())
			fmt.Fprintf(read, "Read: %d\n", s.Read())
		}
	}
}
