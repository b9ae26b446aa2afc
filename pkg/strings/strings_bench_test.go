// Package strings provides benchmarks for string building optimizations
package strings

import (
	"fmt"
	"testing"
)

// Generate test data
func generateTestStrings(count int) []string {
	strs := make([]string, count)
	for i := 0; i < count; i++ {
		strs[i] = fmt.Sprintf("column_%d", i)
	}
	return strs
}

// Benchmark sprintf vs pooled sprintf
func BenchmarkSprintfComparison(b *testing.B) {
	values := []interface{}{"text", 42, true, 3.14}
	format := "type: %s, row: %d, valid: %t, value: %.2f"

	b.Run("StandardSprintf", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := fmt.Sprintf(format, values...)
			_ = result
		}
	})

	b.Run("PooledSprintf", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			result := Sprintf(format, values...)
			_ = result
		}
	})
}

// Benchmark builder pool efficiency
func BenchmarkBuilderPoolEfficiency(b *testing.B) {
	testStrings := generateTestStrings(50)

	b.Run("PooledBuilders", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				builder := GetBuilder(Small)
				for _, s := range testStrings {
					builder.WriteString(s)
					builder.WriteByte(',')
				}
				result := builder.String()
				PutBuilder(builder, Small)
				_ = result
			}
		})
	})

	b.Run("NewBuilders", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				builder := NewBuilder(1024)
				for _, s := range testStrings {
					builder.WriteString(s)
					builder.WriteByte(',')
				}
				result := builder.String()
				_ = result
			}
		})
	})
}

// Benchmark scaling with different data sizes
func BenchmarkStringBuildingScaling(b *testing.B) {
	sizes := []int{10, 100, 1000, 10000}

	for _, size := range sizes {
		testStrings := generateTestStrings(size)

		b.Run(fmt.Sprintf("StandardConcatenation_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				result := ""
				for _, s := range testStrings {
					result += s
				}
				_ = result
			}
		})

		b.Run(fmt.Sprintf("BuildString_%d", size), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				result := BuildString(func(builder *Builder) {
					for _, s := range testStrings {
						builder.WriteString(s)
					}
				})
				_ = result
			}
		})
	}
}
