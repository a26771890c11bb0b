package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/haley/backend/internal/config"
	"github.com/zhouzirui/haley/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	text := flag.String("text", "Hi, I'm Haley. What can I do for you?", "TTS 输入文本")
	voice := flag.String("voice", "", "TTS 声音，默认使用 TTS_VOICE")
	outputPath := flag.String("out", "", "输出音频文件路径 (默认根据格式自动生成)")
	timeout := flag.Duration("timeout", 45*time.Second, "请求超时时间")
	flag.Parse()

	if !cfg.TTS.Enabled() {
		log.Fatal("TTS 未启用，请先配置 TTS_API_KEY")
	}
	if strings.TrimSpace(*text) == "" {
		log.Fatal("需要通过 -text 提供待合成文本")
	}

	out := *outputPath
	if out == "" {
		out = fmt.Sprintf("tts-output-%d.%s", time.Now().Unix(), cfg.TTS.Format)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, speech.NewClient(cfg.TTS), *text, *voice, out); err != nil {
		log.Fatalf("TTS 调用失败: %v", err)
	}
}

func run(ctx context.Context, client *speech.Client, text, voice, out string) error {
	started := time.Now()
	stream, err := client.Stream(ctx, text, voice)
	if err != nil {
		var statusErr *speech.StatusError
		if errors.As(err, &statusErr) {
			log.Printf("上游返回 %d: %s", statusErr.StatusCode, statusErr.Body)
		}
		return err
	}
	defer stream.Close()

	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	defer file.Close()

	chunks := 0
	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("读取音频流失败: %w", err)
		}
		if chunks == 0 {
			log.Printf("首包耗时 %s", time.Since(started))
		}
		chunks++
		if _, err := file.Write(chunk); err != nil {
			return fmt.Errorf("写入音频文件失败: %w", err)
		}
	}

	log.Printf("TTS 合成成功: 输出文件 %s, chunks=%d bytes=%d 耗时=%s", out, chunks, stream.Total(), time.Since(started))
	return nil
}
