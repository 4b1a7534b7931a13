package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/0cat/siteMirror/internal"
)

func main() {
	var (
		input        = flag.String("i", "", "token 文件路径（.json 或 kind/value 行对格式，必选）")
		outputDir    = flag.String("o", "mirror_output", "输出目录")
		baseURL      = flag.String("base", "", "源站地址，为空时从 token 流推断")
		configPath   = flag.String("config", "", "YAML 配置文件")
		timeout      = flag.Duration("timeout", internal.DefaultTimeout, "单次资源请求超时")
		retries      = flag.Int("retries", internal.DefaultRetries, "超时时的最大尝试次数")
		cssMax       = flag.Int("css-max", internal.DefaultCSSMax>>20, "CSS 大小上限（MB）")
		jsMax        = flag.Int("js-max", internal.DefaultJSMax>>20, "JS 大小上限（MB）")
		imgMax       = flag.Int("img-max", internal.DefaultImageMax>>20, "图片大小上限（MB）")
		probe        = flag.Bool("probe", false, "下载资源前检查源站连通性")
		preview      = flag.Bool("preview", false, "用 headless Chrome 为镜像页面截图")
		markdown     = flag.Bool("markdown", false, "额外输出 Markdown 版本")
		noClassifier = flag.Bool("no-classifier", false, "关闭分类器，使用静态白名单")
		insecure     = flag.Bool("k", false, "忽略源站 SSL 证书错误")
		verbose      = flag.Bool("v", false, "输出调试日志")
	)

	flag.Parse()

	if *input == "" {
		fmt.Fprintf(os.Stderr, "错误: -i 参数是必选的\n")
		flag.Usage()
		os.Exit(1)
	}

	internal.SetLogger(internal.NewSimpleLogger(*verbose))

	opts := internal.DefaultOptions()
	if *configPath != "" {
		cfg, err := internal.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "错误: %v\n", err)
			os.Exit(1)
		}
		cfg.Apply(&opts)
	}

	// 只有命令行上显式给出的参数才覆盖配置文件
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			opts.OutputDir = *outputDir
		case "base":
			opts.BaseURL = *baseURL
		case "timeout":
			setBudgets(&opts, func(b *internal.Budget) { b.Timeout = *timeout })
		case "retries":
			setBudgets(&opts, func(b *internal.Budget) { b.MaxRetries = *retries })
		case "css-max":
			opts.CSSBudget.MaxBytes = int64(*cssMax) << 20
		case "js-max":
			opts.JSBudget.MaxBytes = int64(*jsMax) << 20
		case "img-max":
			opts.ImageBudget.MaxBytes = int64(*imgMax) << 20
		case "probe":
			opts.Probe = *probe
		case "preview":
			opts.Preview = *preview
		case "markdown":
			opts.Markdown = *markdown
		case "no-classifier":
			opts.NoClassifier = *noClassifier
		case "k":
			opts.Insecure = *insecure
		}
	})
	opts.TokensPath = *input

	start := time.Now()
	report, err := internal.Run(context.Background(), opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("完成！源站 %s，%d 个标签记录，资源 %d/%d 个已镜像，%d 条警告，耗时 %v\n",
		report.BaseURL,
		report.TagCount,
		report.AssetsFetched,
		report.AssetsTotal,
		len(report.Warnings),
		time.Since(start).Round(time.Millisecond),
	)
	for _, f := range report.Files {
		fmt.Printf("  %s\n", f)
	}
}

func setBudgets(opts *internal.Options, fn func(*internal.Budget)) {
	fn(&opts.CSSBudget)
	fn(&opts.JSBudget)
	fn(&opts.ImageBudget)
}
