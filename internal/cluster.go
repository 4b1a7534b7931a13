package internal

import (
	"sort"
	"strconv"

	"github.com/corona10/goimagehash"
)

// SimilarImageDistance pHash 汉明距离不超过该值视为同一张图
const SimilarImageDistance = 6

// UnionFind 并查集
// 用于把感知哈希相近的图片合并到同一组
type UnionFind struct {
	parent []int
	rank   []int
}

// NewUnionFind 创建新的并查集
func NewUnionFind(size int) *UnionFind {
	uf := &UnionFind{
		parent: make([]int, size),
		rank:   make([]int, size),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

// Find 查找根节点
func (uf *UnionFind) Find(x int) int {
	if uf.parent[x] != x {
		uf.parent[x] = uf.Find(uf.parent[x]) // 路径压缩
	}
	return uf.parent[x]
}

// Union 合并两个集合
func (uf *UnionFind) Union(x, y int) {
	rootX, rootY := uf.Find(x), uf.Find(y)
	if rootX == rootY {
		return
	}

	// 按秩合并
	switch {
	case uf.rank[rootX] < uf.rank[rootY]:
		uf.parent[rootX] = rootY
	case uf.rank[rootX] > uf.rank[rootY]:
		uf.parent[rootY] = rootX
	default:
		uf.parent[rootY] = rootX
		uf.rank[rootX]++
	}
}

// Groups 按根节点分组，组内保持下标顺序
func (uf *UnionFind) Groups() map[int][]int {
	groups := make(map[int][]int)
	for i := range uf.parent {
		root := uf.Find(i)
		groups[root] = append(groups[root], i)
	}
	return groups
}

// ImageGroup 视觉上重复的一组镜像图片
type ImageGroup struct {
	Canonical   string   `json:"canonical"`
	Members     []string `json:"members"`
	MaxDistance int      `json:"max_distance"`
}

// GroupSimilarImages 把 pHash 距离在 maxDistance 以内的已镜像图片归为一组，只返回两张以上的组
// 不同 URL 指向同一张图（尺寸变体、CDN 参数）时很常见
func GroupSimilarImages(refs []*AssetRef, maxDistance int) []ImageGroup {
	var imgs []*AssetRef
	var hashes []*goimagehash.ImageHash
	seen := make(map[string]bool)
	for _, ref := range refs {
		if ref.Image == nil || ref.LocalPath == "" || seen[ref.LocalPath] {
			continue
		}
		v, err := strconv.ParseUint(ref.Image.PHash, 16, 64)
		if err != nil {
			continue
		}
		seen[ref.LocalPath] = true
		imgs = append(imgs, ref)
		hashes = append(hashes, goimagehash.NewImageHash(v, goimagehash.PHash))
	}

	uf := NewUnionFind(len(imgs))
	dist := make(map[[2]int]int)
	for i := 0; i < len(imgs); i++ {
		for j := i + 1; j < len(imgs); j++ {
			d, err := hashes[i].Distance(hashes[j])
			if err != nil || d > maxDistance {
				continue
			}
			dist[[2]int{i, j}] = d
			uf.Union(i, j)
		}
	}

	var groups []ImageGroup
	for _, members := range uf.Groups() {
		if len(members) < 2 {
			continue
		}
		g := ImageGroup{Canonical: imgs[selectCanonical(imgs, members)].LocalPath}
		for _, m := range members {
			g.Members = append(g.Members, imgs[m].LocalPath)
		}
		for k, d := range dist {
			if uf.Find(k[0]) == uf.Find(members[0]) && d > g.MaxDistance {
				g.MaxDistance = d
			}
		}
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Canonical < groups[j].Canonical })
	return groups
}

// selectCanonical 选择组内代表图片：面积最大，其次出现最早
func selectCanonical(imgs []*AssetRef, members []int) int {
	best := members[0]
	for _, m := range members[1:] {
		a, b := imgs[m].Image, imgs[best].Image
		if a.Width*a.Height > b.Width*b.Height {
			best = m
		}
	}
	return best
}
