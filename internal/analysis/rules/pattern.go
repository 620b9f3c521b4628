package rules

import "fmt"

// Conversion 处理摄氏度转华氏度请求。
type Conversion struct{}

func (Conversion) Name() string { return "conversion" }

func (Conversion) TryResolve(normalized string) (string, bool) {
	c, ok := ParseCelsius(normalized)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s degrees Celsius is %.2f degrees Fahrenheit.", formatNumber(c), CelsiusToFahrenheit(c)), true
}

// Arithmetic 处理 "what is a+b" 查询。
type Arithmetic struct{}

func (Arithmetic) Name() string { return "arithmetic" }

func (Arithmetic) TryResolve(normalized string) (string, bool) {
	add, ok := ParseAddition(normalized)
	if !ok {
		return "", false
	}
	sum, ok := add.Sum()
	if !ok {
		return "", false
	}
	return fmt.Sprintf("The sum of %d and %d is %d.", add.Left, add.Right, sum), true
}
