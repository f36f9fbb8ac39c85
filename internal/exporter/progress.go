package exporter

// ProgressEvent 写入进度事件
type ProgressEvent struct {
	Percent int
	Stage   string
	Sheet   string // 正在写入的 Sheet，准备/完成阶段为空
	Rows    int    // 该 Sheet 已写入的数据行数
}

// ProgressFunc 接收写入进度；可为 nil
type ProgressFunc func(ProgressEvent)

func reportProgress(progress ProgressFunc, event ProgressEvent) {
	if progress == nil {
		return
	}
	event.Percent = max(0, min(event.Percent, 100))
	progress(event)
}
