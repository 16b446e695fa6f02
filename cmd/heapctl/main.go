// Command heapctl drives workloads through a heap2d allocator and reports
// what the allocator did with them.
package main

func main() {
	execute()
}
