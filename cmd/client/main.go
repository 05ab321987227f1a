package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/palemoky/bill-to-law/internal/logger"
	"github.com/palemoky/bill-to-law/internal/ui"
)

func main() {
	serverAddr := flag.String("server", "localhost:1780", "服务器地址")
	room := flag.String("room", "", "房间号，留空则在大厅输入")
	seat := flag.Int("seat", -1, "座位号 (从 0 开始)，-1 表示由服务端分配")
	players := flag.Int("players", 0, "新建房间的人数 (2-6)，0 表示服务端默认")
	binary := flag.Bool("binary", false, "使用二进制帧")
	logPath := flag.String("log", "", "日志文件，留空则不记录")
	flag.Parse()

	// The terminal belongs to the UI, so logs only ever go to a file.
	if *logPath != "" {
		if err := logger.Init("debug", false, *logPath); err != nil {
			fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Close()
	}

	cfg := ui.Config{
		ServerURL: fmt.Sprintf("ws://%s/ws", *serverAddr),
		Room:      *room,
		Binary:    *binary,
	}
	if *seat >= 0 {
		cfg.Seat = seat
	}
	if *players > 0 {
		cfg.Players = players
	}

	p := tea.NewProgram(ui.NewOnlineModel(cfg), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "启动客户端时出错: %v\n", err)
		os.Exit(1)
	}
}
