package programs

func clamp(v int) int {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func grade(score float64) int {
	if score >= 90.5 {
		return 1
	}
	return 2
}

func classify(a int, b int) int {
	x := 0
	if a == 3 {
		x = clamp(a)
	} else {
		x = clamp(250)
	}
	if b > 7 {
		x = x + 1
	}
	return x
}

func same(s string) bool {
	if s == "ok" {
		return true
	}
	return false
}
