package engine

import "math"

// altmov picks a replacement for interpolation point knew that keeps the
// denominator of the updating formula large. Two candidates are produced:
// xnew lies on a line through xopt and another interpolation point, xalt is
// a constrained Cauchy step of the knew-th Lagrange function. Both stay in
// the box and within adelt of xopt. It returns the diagonal element alpha
// of the inverse KKT matrix for knew and the square of the Lagrange
// function at xalt, which is zero when no Cauchy step exists.
func (s *state) altmov(knew, kopt int, adelt float64, glag, hcol, w []float64) (alpha, cauchy float64) {
	n, npt := s.n, s.npt
	nptm := npt - n - 1
	xpt, bmat, zmat := s.xpt, s.bmat, s.zmat
	xopt, sl, su, xnew, xalt := s.xopt, s.sl, s.su, s.xnew, s.xalt

	const growth = 1 + math.Sqrt2

	var (
		ksav, ibdsav, ilbd, iubd, isbd, iflag int

		ha, presav, stpsav, step, vlag, temp float64
		bigstp, wfixsq, wsqsav, ggfree       float64
		gw, curv, csave                      float64
	)

	for k := 0; k < npt; k++ {
		hcol[k] = 0
	}
	for j := 0; j < nptm; j++ {
		temp = zmat[knew][j]
		for k := 0; k < npt; k++ {
			hcol[k] += temp * zmat[k][j]
		}
	}
	alpha = hcol[knew]
	ha = 0.5 * alpha

	// Gradient of the knew-th Lagrange function at xopt.
	for i := 0; i < n; i++ {
		glag[i] = bmat[knew][i]
	}
	for k := 0; k < npt; k++ {
		temp = 0
		for j := 0; j < n; j++ {
			temp += xpt[k][j] * xopt[j]
		}
		temp *= hcol[k]
		for i := 0; i < n; i++ {
			glag[i] += temp * xpt[k][i]
		}
	}

	// Line searches along xopt + t (xpt[k] - xopt). Bound codes are +(i+1)
	// for an upper and -(i+1) for a lower bound on variable i.
	presav = 0
	for k := 0; k < npt; k++ {
		if k == kopt {
			continue
		}
		dderiv := 0.0
		distsq := 0.0
		for i := 0; i < n; i++ {
			temp = xpt[k][i] - xopt[i]
			dderiv += glag[i] * temp
			distsq += temp * temp
		}
		subd := adelt / math.Sqrt(distsq)
		slbd := -subd
		ilbd = 0
		iubd = 0
		sumin := math.Min(1, subd)

		for i := 0; i < n; i++ {
			temp = xpt[k][i] - xopt[i]
			if temp > 0 {
				if slbd*temp < sl[i]-xopt[i] {
					slbd = (sl[i] - xopt[i]) / temp
					ilbd = -(i + 1)
				}
				if subd*temp > su[i]-xopt[i] {
					subd = math.Max(sumin, (su[i]-xopt[i])/temp)
					iubd = i + 1
				}
			} else if temp < 0 {
				if slbd*temp > su[i]-xopt[i] {
					slbd = (su[i] - xopt[i]) / temp
					ilbd = i + 1
				}
				if subd*temp < sl[i]-xopt[i] {
					subd = math.Max(sumin, (sl[i]-xopt[i])/temp)
					iubd = -(i + 1)
				}
			}
		}

		if k == knew {
			diff := dderiv - 1
			step = slbd
			vlag = slbd * (dderiv - slbd*diff)
			isbd = ilbd
			temp = subd * (dderiv - subd*diff)
			if math.Abs(temp) > math.Abs(vlag) {
				step = subd
				vlag = temp
				isbd = iubd
			}
			tempd := 0.5 * dderiv
			tempa := tempd - diff*slbd
			tempb := tempd - diff*subd
			if tempa*tempb < 0 {
				temp = tempd * tempd / diff
				if math.Abs(temp) > math.Abs(vlag) {
					step = tempd / diff
					vlag = temp
					isbd = 0
				}
			}
		} else {
			step = slbd
			vlag = slbd * (1 - slbd)
			isbd = ilbd
			temp = subd * (1 - subd)
			if math.Abs(temp) > math.Abs(vlag) {
				step = subd
				vlag = temp
				isbd = iubd
			}
			if subd > 0.5 && math.Abs(vlag) < 0.25 {
				step = 0.5
				vlag = 0.25
				isbd = 0
			}
			vlag *= dderiv
		}

		temp = step * (1 - step) * distsq
		predsq := vlag * vlag * (vlag*vlag + ha*temp*temp)
		if predsq > presav {
			presav = predsq
			ksav = k
			stpsav = step
			ibdsav = isbd
		}
	}

	for i := 0; i < n; i++ {
		temp = xopt[i] + stpsav*(xpt[ksav][i]-xopt[i])
		xnew[i] = math.Max(sl[i], math.Min(su[i], temp))
	}
	if ibdsav < 0 {
		xnew[-ibdsav-1] = sl[-ibdsav-1]
	}
	if ibdsav > 0 {
		xnew[ibdsav-1] = su[ibdsav-1]
	}

	// Constrained Cauchy step, tried along -glag first and then along
	// +glag; the larger value of the squared Lagrange function wins. Free
	// components of w hold bigstp until they are set.
	bigstp = adelt + adelt
	iflag = 0
cauchyStep:
	wfixsq = 0
	ggfree = 0
	for i := 0; i < n; i++ {
		w[i] = 0
		tempa := math.Min(xopt[i]-sl[i], glag[i])
		tempb := math.Max(xopt[i]-su[i], glag[i])
		if tempa > 0 || tempb < 0 {
			w[i] = bigstp
			ggfree += glag[i] * glag[i]
		}
	}
	if ggfree == 0 {
		return alpha, 0
	}

fix:
	temp = adelt*adelt - wfixsq
	if temp > 0 {
		wsqsav = wfixsq
		step = math.Sqrt(temp / ggfree)
		ggfree = 0
		for i := 0; i < n; i++ {
			if w[i] != bigstp {
				continue
			}
			temp = xopt[i] - step*glag[i]
			if temp <= sl[i] {
				w[i] = sl[i] - xopt[i]
				wfixsq += w[i] * w[i]
			} else if temp >= su[i] {
				w[i] = su[i] - xopt[i]
				wfixsq += w[i] * w[i]
			} else {
				ggfree += glag[i] * glag[i]
			}
		}
		if wfixsq > wsqsav && ggfree > 0 {
			goto fix
		}
	}

	gw = 0
	for i := 0; i < n; i++ {
		if w[i] == bigstp {
			w[i] = -step * glag[i]
			xalt[i] = math.Max(sl[i], math.Min(su[i], xopt[i]+w[i]))
		} else if w[i] == 0 {
			xalt[i] = xopt[i]
		} else if glag[i] > 0 {
			xalt[i] = sl[i]
		} else {
			xalt[i] = su[i]
		}
		gw += glag[i] * w[i]
	}

	curv = 0
	for k := 0; k < npt; k++ {
		temp = 0
		for j := 0; j < n; j++ {
			temp += xpt[k][j] * w[j]
		}
		curv += hcol[k] * temp * temp
	}
	if iflag == 1 {
		curv = -curv
	}
	if curv > -gw && curv < -growth*gw {
		scale := -gw / curv
		for i := 0; i < n; i++ {
			temp = xopt[i] + scale*w[i]
			xalt[i] = math.Max(sl[i], math.Min(su[i], temp))
		}
		cauchy = (0.5 * gw * scale) * (0.5 * gw * scale)
	} else {
		cauchy = (gw + 0.5*curv) * (gw + 0.5*curv)
	}

	if iflag == 0 {
		for i := 0; i < n; i++ {
			glag[i] = -glag[i]
			w[n+i] = xalt[i]
		}
		csave = cauchy
		iflag = 1
		goto cauchyStep
	}
	if csave > cauchy {
		for i := 0; i < n; i++ {
			xalt[i] = w[n+i]
		}
		cauchy = csave
	}
	return alpha, cauchy
}
