package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scanhub-api/internal/scanner"
	"scanhub-api/pkg/barcode"
)

func main() {
	log.SetFlags(0)

	var (
		imagePath = flag.String("image", "", "decode a single image file and exit")
		streamURL = flag.String("stream", "", "run the live scan loop against an MJPEG stream URL")
		generate  = flag.Bool("generate", false, "emit a test barcode for -format")
		formatArg = flag.String("format", "", "barcode format (EAN-13, EAN-8, UPC-A, UPC-E, Code128, Code39)")
		tick      = flag.Duration("tick", scanner.DefaultTickInterval, "scan tick interval for -stream")
		cooldown  = flag.Duration("cooldown", scanner.DefaultCooldown, "repeat-scan cool-down for -stream")
		timeout   = flag.Duration("timeout", 0, "give up after this long in -stream mode (0 = wait forever)")
	)
	flag.Parse()

	switch {
	case *generate:
		runGenerate(*formatArg)
	case *imagePath != "":
		runImage(*imagePath)
	case *streamURL != "":
		runStream(*streamURL, *tick, *cooldown, *timeout)
	case flag.NArg() == 1:
		runValidate(flag.Arg(0), *formatArg)
	default:
		fmt.Fprintln(os.Stderr, "usage: scantool [-image FILE | -stream URL | -generate -format F | [-format F] BARCODE]")
		os.Exit(2)
	}
}

// runValidate checks a barcode string, strictly against -format when given.
func runValidate(code, formatArg string) {
	if formatArg != "" {
		f := barcode.Format(formatArg)
		if !barcode.Validate(code, f) {
			log.Fatalf("INVALID: %q is not a valid %s", code, f)
		}
		fmt.Printf("OK %s %s\n", f, barcode.FormatDisplay(code, f))
		return
	}

	format, ok := barcode.Detect(code)
	if !ok {
		log.Fatalf("INVALID: %q matches no supported format", code)
	}
	fmt.Printf("OK %s %s\n", format, barcode.FormatDisplay(code, format))
}

// runGenerate prints one valid test barcode.
func runGenerate(formatArg string) {
	f := barcode.EAN13
	if formatArg != "" {
		f = barcode.Format(formatArg)
	}

	code, err := barcode.GenerateTest(f)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}
	fmt.Println(code)
}

// runImage decodes a single still image through the preprocessing variants.
func runImage(path string) {
	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		log.Fatalf("decode image: %v", err)
	}

	text, format, err := scanner.DecodeFrame(scanner.NewDecoder(), img)
	if err != nil {
		log.Fatalf("no barcode found in %s", path)
	}

	if !barcode.Validate(text, format) {
		log.Fatalf("decoded %q as %s but it failed validation", text, format)
	}
	fmt.Printf("%s %s\n", format, text)
}

// runStream runs the arbiter against a live MJPEG stream and prints the first
// accepted barcode.
func runStream(url string, tick, cooldown, timeout time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	opener := scanner.NewMJPEGOpener(scanner.MJPEGConfig{BackURL: url})
	arb := scanner.NewArbiter(opener, scanner.NewDecoder(), scanner.ArbiterConfig{
		TickInterval: tick,
		Cooldown:     cooldown,
		OnError: func(err error) {
			log.Printf("stream error: %v", err)
			cancel()
		},
	})

	accepted := make(chan string, 1)
	if err := arb.Start(ctx, func(text string) {
		accepted <- text
	}); err != nil {
		log.Fatalf("start scan: %v", err)
	}
	defer arb.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case text := <-accepted:
		format, _ := barcode.Detect(text)
		fmt.Printf("%s %s\n", format, text)
	case <-ctx.Done():
		log.Fatal("no barcode accepted before stream ended")
	case <-sig:
		log.Fatal("interrupted")
	}
}
