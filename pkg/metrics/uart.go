// TMC UART link metrics
//
// Copyright (C) 2026 Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

// UARTMetrics counts single-wire UART traffic per chip and operation.
// A nil *UARTMetrics is valid and records nothing.
type UARTMetrics struct {
	Attempts *Counter
	Retries  *Counter
	Failures *Counter
	Latency  *Histogram
	IFCNT    *Gauge

	registry *Registry
}

// NewUARTMetrics creates the UART metrics and registers them in a new
// registry.
func NewUARTMetrics() *UARTMetrics {
	m := &UARTMetrics{
		Attempts: NewCounter("tmc_uart_attempts_total",
			"Frames sent to TMC drivers"),
		Retries: NewCounter("tmc_uart_retries_total",
			"Register transfers repeated after a bad or missing reply"),
		Failures: NewCounter("tmc_uart_failures_total",
			"Register transfers abandoned after the retry limit"),
		Latency: NewHistogram("tmc_uart_transfer_seconds",
			"Duration of complete register transfers",
			ExponentialBuckets(.001, 2, 10)),
		IFCNT: NewGauge("tmc_uart_ifcnt",
			"Last observed interface transmission counter"),
		registry: NewRegistry(),
	}
	m.registry.MustRegister(m.Attempts)
	m.registry.MustRegister(m.Retries)
	m.registry.MustRegister(m.Failures)
	m.registry.MustRegister(m.Latency)
	m.registry.MustRegister(m.IFCNT)
	return m
}

// Registry returns the registry holding the UART metrics.
func (m *UARTMetrics) Registry() *Registry {
	return m.registry
}

// Gather renders the UART metrics in Prometheus text format.
func (m *UARTMetrics) Gather() string {
	return m.registry.Gather()
}

func opLabels(chip, op string) Labels {
	return Labels{"chip": chip, "op": op}
}

// Attempt records one frame sent for an operation.
func (m *UARTMetrics) Attempt(chip, op string) {
	if m == nil {
		return
	}
	m.Attempts.Inc(opLabels(chip, op))
}

// Retry records a repeated attempt.
func (m *UARTMetrics) Retry(chip, op string) {
	if m == nil {
		return
	}
	m.Retries.Inc(opLabels(chip, op))
}

// Failure records an operation that ran out of attempts.
func (m *UARTMetrics) Failure(chip, op string) {
	if m == nil {
		return
	}
	m.Failures.Inc(opLabels(chip, op))
}

// Time starts timing an operation; call the result when it completes.
func (m *UARTMetrics) Time(chip, op string) func() {
	if m == nil {
		return func() {}
	}
	return m.Latency.Timer(opLabels(chip, op))
}

// ObserveIFCNT records the counter value last read from a chip.
func (m *UARTMetrics) ObserveIFCNT(chip string, v uint8) {
	if m == nil {
		return
	}
	m.IFCNT.Set(Labels{"chip": chip}, float64(v))
}
