// Package job 提供带固定工作协程池的先进先出任务队列。
//
// 任务按提交顺序出队, 由固定数量的工作协程并发执行。队列满时 Submit
// 立即返回 ErrQueueFull, 由调用方决定退避策略。单个任务的错误或 panic
// 只影响该任务: 错误文本写入任务上下文的 data 键, 完成回调照常执行,
// 工作协程继续取下一个任务。
//
// 基本用法:
//
//	queue, err := job.NewQueue(job.WithWorkers(2), job.WithQueueSize(128))
//	if err != nil {
//		log.Fatal(err)
//	}
//	queue.Start()
//	defer queue.Stop(context.Background())
//
//	jb := job.Acquire()
//	jb.Name = "generate"
//	jb.Work = func(ctx context.Context, jc map[string]any) (any, error) {
//		return doWork(ctx)
//	}
//	jb.OnComplete = func(jc map[string]any) {
//		fmt.Println(jc[job.KeyData])
//	}
//	if err := queue.Submit(jb); err != nil {
//		// 队列已满
//	}
package job
