package stats

import "fmt"

const (
	lutSize    int = 256
	minBuckets int = 2
)

// DrawBuckets
//
// 用來快速定位取值 -> DistRecord 位置 O(1)
//
// 以等寬方式切分整個 uint32 值域，透過高位位元組查表定位
//   - 桶數必須能整除 256（2, 4, 8, ..., 256）
//   - 值域區間: [0x00000000,0x10000000), [0x10000000,0x20000000), ..., [0xf0000000,0xffffffff]
type DrawBuckets struct {
	bucketMap map[int]*DrawBucket
}

type DrawBucket struct {
	count    int
	labels   []string
	valueLUT []int
}

// Buckets
//
// 用來快速定位取值 -> DistRecord 位置 O(1)
//
// 桶數必須能整除 256，否則 panic
var Buckets *DrawBuckets = &DrawBuckets{
	bucketMap: make(map[int]*DrawBucket),
}

func (b *DrawBuckets) GetBucketByCount(n int) *DrawBucket {
	result, exist := b.bucketMap[n]
	if !exist {
		result = b.buildBucket(n)
	}
	return result
}

func (b *DrawBuckets) buildBucket(n int) *DrawBucket {
	if n < minBuckets || n > lutSize || lutSize%n != 0 {
		panic(fmt.Sprintf("DrawBuckets: 桶數必須能整除 %d, got %d", lutSize, n))
	}

	// 每桶涵蓋多少個高位位元組值
	span := lutSize / n

	lut := make([]int, lutSize) // lut[v>>24] = idx
	labels := make([]string, n)
	for i := 0; i < n; i++ {
		lo := uint32(i*span) << 24
		if i == n-1 {
			labels[i] = fmt.Sprintf("[0x%08x,0xffffffff]", lo)
		} else {
			hi := uint32((i+1)*span) << 24
			labels[i] = fmt.Sprintf("[0x%08x,0x%08x)", lo, hi)
		}
		for j := 0; j < span; j++ {
			lut[i*span+j] = i
		}
	}

	result := &DrawBucket{
		count:    n,
		labels:   labels,
		valueLUT: lut,
	}

	b.bucketMap[n] = result
	return result
}

func (db *DrawBucket) Labels() []string {
	return db.labels
}

func (db *DrawBucket) Count() int {
	return db.count
}

func (db *DrawBucket) Index(v uint32) int {
	return db.valueLUT[v>>24]
}
