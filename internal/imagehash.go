package internal

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/corona10/goimagehash"
)

// FingerprintImage 计算本地图片的感知哈希（pHash）
// 支持 PNG、JPEG、GIF，其他格式（svg/ico/webp）返回错误
func FingerprintImage(path string) (*ImageFingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fingerprintBytes(data)
}

func fingerprintBytes(data []byte) (*ImageFingerprint, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("图片数据为空")
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("图片解码失败 (%s): %w", format, err)
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &ImageFingerprint{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		PHash:  fmt.Sprintf("%016x", hash.GetHash()),
	}, nil
}
