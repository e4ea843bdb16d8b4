package transform

// registeredFactories lists every built-in transform (spec.md §4.2.3).
// NewRegistry instantiates one of each via this list.
var registeredFactories = []Factory{
	func() Transform { return forceStream{} },
	func() Transform { return injectSystemPrompt{} },
	func() Transform { return mergeConsecutiveRoles{} },
	func() Transform { return overrideMaxTokens{} },
	func() Transform { return systemToDeveloperRole{} },
	func() Transform { return appendEmptyUserMessage{} },
	func() Transform { return setField{} },
	func() Transform { return removeField{} },
	func() Transform { return reasoningEffortToBudget{} },
	func() Transform { return reasoningEffortToModelSuffix{} },
	func() Transform { return reasoningToThinkXML{} },
	func() Transform { return thinkXMLToReasoning{} },
	func() Transform { return stripReasoning{} },
	func() Transform { return autoCacheSystem{} },
	func() Transform { return autoCacheToolUse{} },
	func() Transform { return autoCacheUserID{} },
}
