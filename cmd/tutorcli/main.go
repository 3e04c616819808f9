package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"tara-tutor-be/internal/bootstrap"
	"tara-tutor-be/internal/config"
	"tara-tutor-be/internal/dto"
	"tara-tutor-be/internal/pkg/logger"
	"tara-tutor-be/internal/service"

	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2"
)

var (
	tara   = color.New(color.FgCyan, color.Bold)
	you    = color.New(color.FgGreen, color.Bold)
	option = color.New(color.FgYellow)
	notice = color.New(color.FgMagenta)
)

func main() {
	sessionID := flag.String("session", "cli", "session id")
	logPath := flag.String("log", "logs/tutorcli.log", "log file")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	sysLogger := logger.NewIsolatedLogger(*logPath)
	defer sysLogger.Sync()

	ctx := context.Background()
	engine, closeIndex, err := bootstrap.NewEngine(ctx, cfg, sysLogger)
	if err != nil {
		log.Fatalf("Failed to start tutor: %v", err)
	}
	defer closeIndex()

	svc := service.NewTutorService(engine, nil, nil, sysLogger)

	color.Cyan("TARA tutor. Commands: /upload <path>, /detach, /reset, /quit. Answer quizzes with 1-4 or A-D.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lastOptions []dto.QuizOptionDTO

	for {
		you.Print("\nyou> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit" || line == "/exit":
			return
		case line == "/reset":
			svc.ResetSession(ctx, *sessionID)
			lastOptions = nil
			notice.Println("Conversation reset.")
			continue
		case line == "/detach":
			if svc.DetachDocument(ctx, *sessionID).Detached {
				notice.Println("File context removed.")
			} else {
				notice.Println("No file attached.")
			}
			continue
		case strings.HasPrefix(line, "/upload "):
			uploadFile(ctx, svc, *sessionID, strings.TrimSpace(strings.TrimPrefix(line, "/upload ")))
			continue
		}

		req := &dto.SendChatRequest{SessionId: *sessionID, Chat: line}
		if letter, ok := pickOption(line, lastOptions); ok {
			req = &dto.SendChatRequest{SessionId: *sessionID, Option: letter}
		}

		lastOptions = chat(ctx, svc, req)
	}
}

// pickOption maps "2" or "b" to a letter from the last quiz.
func pickOption(line string, options []dto.QuizOptionDTO) (string, bool) {
	if len(options) == 0 || len(line) != 1 {
		return "", false
	}
	ch := strings.ToUpper(line)[0]
	if ch >= '1' && ch <= '9' {
		i := int(ch - '1')
		if i < len(options) {
			return options[i].Letter, true
		}
		return "", false
	}
	for _, o := range options {
		if o.Letter[0] == ch {
			return o.Letter, true
		}
	}
	return "", false
}

func chat(ctx context.Context, svc service.ITutorService, req *dto.SendChatRequest) []dto.QuizOptionDTO {
	stream, err := svc.StreamChat(ctx, req)
	if err != nil {
		printError(err)
		return nil
	}
	defer stream.Close()

	tara.Print("tara> ")
	for {
		chunk, ok := stream.Next()
		if !ok {
			break
		}
		fmt.Print(chunk)
	}
	fmt.Println()

	res := stream.Final()
	if res.Failed {
		notice.Println(res.Reply)
		return nil
	}
	if res.Notice != "" {
		notice.Println(res.Notice)
	}
	for i, o := range res.Options {
		option.Printf("  %d. %s) %s\n", i+1, o.Letter, o.Text)
	}
	return res.Options
}

func uploadFile(ctx context.Context, svc service.ITutorService, sessionID, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		color.Red("Cannot read %s: %v", path, err)
		return
	}
	res, err := svc.UploadDocument(ctx, sessionID, filepath.Base(path), data)
	if err != nil {
		printError(err)
		return
	}
	notice.Println(res.Message)
	if res.Replaced != "" {
		notice.Printf("(replaced %s)\n", res.Replaced)
	}
}

func printError(err error) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		color.Red("%s", fe.Message)
		return
	}
	color.Red("Error: %v", err)
}
