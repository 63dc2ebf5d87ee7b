package job

import (
	"sync"
	"time"
)

// jobPool 任务对象池, 降低高频提交时的分配压力
var jobPool = sync.Pool{
	New: func() any {
		return &Job{Context: make(map[string]any, 8)}
	},
}

// Acquire 从池中获取任务对象, Context 已初始化
func Acquire() *Job {
	return jobPool.Get().(*Job)
}

// Release 重置并归还任务对象。
// 归还后调用方不得再持有该任务或其 Context。
func Release(j *Job) {
	if j == nil {
		return
	}
	j.ID = ""
	j.Name = ""
	j.Work = nil
	j.OnComplete = nil
	j.EnqueuedAt = time.Time{}
	clear(j.Context)
	jobPool.Put(j)
}
