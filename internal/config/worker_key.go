package config

type WorkerKeyStruct struct {
	ProctorEventsQueue string
	JudgeVerdictsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ProctorEventsQueue: "proctor_events_queue",
	JudgeVerdictsQueue: "judge_verdicts_queue",
}
