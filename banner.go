package danqing

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version 框架版本号
const Version = "0.3.1"

// banner ASCII Art
const banner = `
██████╗  ██████╗     丹青 DanQing 实时消息网关
██╔══██╗██╔═══██╗    基于 Gin 与 WebSocket 的事件路由网关, 单连接多路复用
██║  ██║██║   ██║    ws: %s
██║  ██║██║▄▄ ██║    go: %s
██████╔╝╚██████╔╝    version: %s
╚═════╝  ╚══▀▀═╝
`

// printBanner 打印启动 banner 和已注册事件
func printBanner(addr string, events []string) {
	out := os.Stdout

	var endpoint string
	if strings.HasPrefix(addr, ":") {
		endpoint = "ws://127.0.0.1" + addr
	} else {
		endpoint = "ws://" + addr
	}

	fmt.Fprintf(out, banner, endpoint, runtime.Version(), Version)
	if len(events) > 0 {
		fmt.Fprintf(out, "已注册事件 (%d):\n", len(events))
		for _, name := range events {
			fmt.Fprintf(out, "  - %s\n", name)
		}
	}
	fmt.Fprintln(out)
}
