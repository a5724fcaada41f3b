package cache

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/Humphrey-He/hcatalog/pkg/loader"
	"github.com/Humphrey-He/hcatalog/pkg/model"
	"github.com/Humphrey-He/hcatalog/pkg/params"
)

// BenchmarkGetOrFetch measures lookups over a working set of distinct queries
// for different cache sizes and shard counts.
//
// BenchmarkGetOrFetch 针对不同的缓存大小和分片数量，测量在一组不同查询上的查找性能。
func BenchmarkGetOrFetch(b *testing.B) {
	cacheSizes := []int{16, 256, 4096}
	shardCounts := []int{1, 16, 64}

	for _, size := range cacheSizes {
		for _, shards := range shardCounts {
			b.Run(fmt.Sprintf("Size=%d/Shards=%d", size, shards), func(b *testing.B) {
				runGetOrFetch(b, size, shards)
			})
		}
	}
}

func runGetOrFetch(b *testing.B, size, shards int) {
	products := loader.GenerateProducts(200)
	respond := loader.SlicePages(products)
	l := loader.LoaderFunc(func(ctx context.Context, p params.ProductQueryParams) (model.Page, error) {
		return respond(p)
	})
	c, err := NewWithOptions(l, WithMaxEntries(size), WithShards(shards), WithStaleTTL(0))
	if err != nil {
		b.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	// 工作集是缓存容量的两倍，命中与未命中混合
	queries := make([]params.ProductQueryParams, size*2)
	for i := range queries {
		p := params.Default()
		p.Q = fmt.Sprintf("item-%d", i)
		p.Page = 1 + i%5
		queries[i] = p
	}
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(rand.Int63()))
		for pb.Next() {
			p := queries[r.Intn(len(queries))]
			if _, err := c.GetOrFetch(ctx, "bench", p); err != nil {
				b.Errorf("GetOrFetch failed: %v", err)
				return
			}
		}
	})
}

// BenchmarkFetchNextPage measures building a long series one page at a time.
func BenchmarkFetchNextPage(b *testing.B) {
	products := loader.GenerateProducts(b.N*2 + 2)
	c, err := NewWithOptions(loader.NewMockLoader(loader.SlicePages(products)), WithStaleTTL(0))
	if err != nil {
		b.Fatalf("Failed to create cache: %v", err)
	}
	defer c.Close()

	p := params.Default()
	p.Limit = 2
	ctx := context.Background()
	if _, err := c.GetOrFetch(ctx, "bench", p); err != nil {
		b.Fatalf("GetOrFetch failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.FetchNextPage(ctx, "bench", p); err != nil {
			b.Fatalf("FetchNextPage failed: %v", err)
		}
	}
}
