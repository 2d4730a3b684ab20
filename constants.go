/*
Copyright © 2026 the Spresso authors.
This file is part of Spresso.

Spresso is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Spresso is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Spresso.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package spresso simulates electromigration-driven separation of
// weak electrolytes (isotachophoresis and capillary electrophoresis)
// in a one-dimensional channel.
//
// Concentrations are held in mM (mol m-3), hydrogen ion concentrations
// in mol L-1, lengths in m, times in s, currents in A and mobilities in
// m2 V-1 s-1.
package spresso

// Version gives the version number.
const Version = "0.3.1"

// Physical constants
const (
	Faraday  = 96500. // Faraday constant [C/mol]
	GasConst = 8.314  // universal gas constant [J/(mol K)]
	Temp     = 298.   // temperature [K]

	MobilityH  = 362.e-9 // mobility of H+ [m2/(V s)]
	MobilityOH = 205.e-9 // mobility of OH- [m2/(V s)]
	Kw         = 1.e-14  // water ionization constant [(mol/L)^2]

	// litToM3 converts mol/L to mol/m3 (and mM to mol/L when dividing).
	litToM3 = 1.e3
)

// Bounds of the hydrogen ion search range [mol/L].
const (
	minCH = 1.e-20
	maxCH = 1.e3
)
